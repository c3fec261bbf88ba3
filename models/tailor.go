package models

import (
	"context"
	"time"

	"bitbucket.org/mmdatafocus/garments_backend/config"
	"bitbucket.org/mmdatafocus/garments_backend/utils"
)

// Tailor is the workforce registry entry. Manufacturing orders keep TailorName
// as a value key; a registered tailor is optional but validated here.
type Tailor struct {
	ID             int       `gorm:"primary_key" json:"id"`
	Name           string    `gorm:"size:100;uniqueIndex;not null" json:"name"`
	Phone          string    `gorm:"size:20" json:"phone"`
	Specialization string    `gorm:"size:100" json:"specialization"`
	IsActive       *bool     `gorm:"not null;default:true" json:"isActive"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

type NewTailor struct {
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone"`
	Specialization string `json:"specialization"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewTailor) validate(ctx context.Context, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Tailor](ctx, id); err != nil {
			return err
		}
	}
	// name
	if err := utils.ValidateUnique[Tailor](ctx, "name", input.Name, id); err != nil {
		return ErrorAlreadyExists
	}
	// phone
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return NewValidationError("invalid phone number")
		}
	}
	return nil
}

func CreateTailor(ctx context.Context, input *NewTailor) (*Tailor, error) {

	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	tailor := Tailor{
		Name:           input.Name,
		Phone:          input.Phone,
		Specialization: input.Specialization,
		IsActive:       utils.NewTrue(),
	}

	// db action
	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&tailor).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisList[Tailor](); err != nil {
		return nil, err
	}
	return &tailor, nil
}

func UpdateTailor(ctx context.Context, id int, input *NewTailor) (*Tailor, error) {

	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	tailor, err := utils.FetchModel[Tailor](ctx, id)
	if err != nil {
		return nil, err
	}

	// db action
	db := config.GetDB()
	err = db.WithContext(ctx).Model(&tailor).Updates(map[string]interface{}{
		"Name":           input.Name,
		"Phone":          input.Phone,
		"Specialization": input.Specialization,
	}).Error
	if err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Tailor](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Tailor](); err != nil {
		return nil, err
	}
	return tailor, nil
}

func DeleteTailor(ctx context.Context, id int) (*Tailor, error) {

	result, err := utils.FetchModel[Tailor](ctx, id)
	if err != nil {
		return nil, err
	}

	// Do not delete while orders still name this tailor
	count, err := utils.ResourceCountWhere[ManufacturingOrder](ctx, "tailor_name = ?", result.Name)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, NewValidationError("tailor has manufacturing orders")
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Delete(&result).Error; err != nil {
		return nil, err
	}

	if err := utils.RemoveRedisItem[Tailor](id); err != nil {
		return nil, err
	}
	if err := utils.RemoveRedisList[Tailor](); err != nil {
		return nil, err
	}
	return result, nil
}

func GetTailor(ctx context.Context, id int) (*Tailor, error) {

	result, err := utils.RetrieveRedis[Tailor](id)
	if err != nil {
		return nil, err
	}

	if result == nil {
		db := config.GetDB()
		// db query
		err := db.WithContext(ctx).First(&result, id).Error
		if err != nil {
			return nil, utils.ErrorRecordNotFound
		}
		// caching
		if err := utils.StoreRedis[Tailor](result, id); err != nil {
			return nil, err
		}
	}
	return result, nil
}

func ListTailors(ctx context.Context) ([]*Tailor, error) {

	results, err := utils.RetrieveRedisList[Tailor]()
	if err != nil {
		return nil, err
	}

	if results == nil {
		db := config.GetDB()
		if err := db.WithContext(ctx).Order("name ASC").Find(&results).Error; err != nil {
			return nil, err
		}
		if err := utils.StoreRedisList[Tailor](results); err != nil {
			return nil, err
		}
	}
	return results, nil
}
