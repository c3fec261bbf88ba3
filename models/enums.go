package models

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
	"time"
)

type ItemType string

const (
	ItemTypeFabric        ItemType = "FABRIC"
	ItemTypeManufacturing ItemType = "MANUFACTURING"
	ItemTypeCutting       ItemType = "CUTTING"
	ItemTypeUnknown       ItemType = "UNKNOWN"
)

// convert enum to send response
func (t ItemType) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *ItemType) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("item type must be string")
	}
	switch str {
	case "FABRIC":
		*t = ItemTypeFabric
	case "MANUFACTURING":
		*t = ItemTypeManufacturing
	case "CUTTING":
		*t = ItemTypeCutting
	case "UNKNOWN":
		*t = ItemTypeUnknown
	default:
		return errors.New("invalid item type")
	}
	return nil
}

func (t ItemType) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *ItemType) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = ItemType(v)
	case string:
		*t = ItemType(v)
	default:
		return fmt.Errorf("unsupported item type value: %v", value)
	}
	return nil
}

type TransactionAction string

const (
	TransactionActionAdd         TransactionAction = "ADD"
	TransactionActionRemove      TransactionAction = "REMOVE"
	TransactionActionStockIn     TransactionAction = "STOCK_IN"
	TransactionActionStockOut    TransactionAction = "STOCK_OUT"
	TransactionActionQrGenerated TransactionAction = "QR_GENERATED"
)

// convert enum to send response
func (t TransactionAction) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *TransactionAction) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("transaction action must be string")
	}
	switch str {
	case "ADD":
		*t = TransactionActionAdd
	case "REMOVE":
		*t = TransactionActionRemove
	case "STOCK_IN":
		*t = TransactionActionStockIn
	case "STOCK_OUT":
		*t = TransactionActionStockOut
	case "QR_GENERATED":
		*t = TransactionActionQrGenerated
	default:
		return errors.New("invalid transaction action")
	}
	return nil
}

func (t TransactionAction) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *TransactionAction) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = TransactionAction(v)
	case string:
		*t = TransactionAction(v)
	default:
		return fmt.Errorf("unsupported transaction action value: %v", value)
	}
	return nil
}

type TransactionSource string

const (
	TransactionSourceQrScanner TransactionSource = "QR_SCANNER"
	TransactionSourceManual    TransactionSource = "MANUAL"
)

// convert enum to send response
func (t TransactionSource) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *TransactionSource) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("transaction source must be string")
	}
	switch str {
	case "QR_SCANNER":
		*t = TransactionSourceQrScanner
	case "MANUAL":
		*t = TransactionSourceManual
	default:
		return errors.New("invalid transaction source")
	}
	return nil
}

func (t TransactionSource) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *TransactionSource) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = TransactionSource(v)
	case string:
		*t = TransactionSource(v)
	default:
		return fmt.Errorf("unsupported transaction source value: %v", value)
	}
	return nil
}

type ManufacturingStatus string

const (
	ManufacturingStatusPending    ManufacturingStatus = "Pending"
	ManufacturingStatusInProgress ManufacturingStatus = "In Progress"
	ManufacturingStatusCompleted  ManufacturingStatus = "Completed"
	ManufacturingStatusDelivered  ManufacturingStatus = "Delivered"
)

// convert enum to send response
func (t ManufacturingStatus) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(string(t))), nil
}

// convert input to enum type
func (t *ManufacturingStatus) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("manufacturing status must be string")
	}
	switch str {
	case "Pending":
		*t = ManufacturingStatusPending
	case "In Progress":
		*t = ManufacturingStatusInProgress
	case "Completed":
		*t = ManufacturingStatusCompleted
	case "Delivered":
		*t = ManufacturingStatusDelivered
	default:
		return errors.New("invalid manufacturing status")
	}
	return nil
}

func (t ManufacturingStatus) Value() (driver.Value, error) {
	return string(t), nil
}

func (t *ManufacturingStatus) Scan(value interface{}) error {
	switch v := value.(type) {
	case []byte:
		*t = ManufacturingStatus(v)
	case string:
		*t = ManufacturingStatus(v)
	default:
		return fmt.Errorf("unsupported manufacturing status value: %v", value)
	}
	return nil
}

type MyDateString time.Time

func (t MyDateString) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(time.Time(t).Format("2006-01-02T15:04:05"))), nil
}

// Parse the string into time.Time object
func (t *MyDateString) UnmarshalJSON(data []byte) error {
	str, err := strconv.Unquote(string(data))
	if err != nil {
		return errors.New("MyDateString must be string")
	}

	localTime, err := time.Parse("2006-01-02T15:04:05", str)
	if err != nil {
		// date-only payloads from older clients
		localTime, err = time.Parse("2006-01-02", str)
		if err != nil {
			return errors.New("error parsing datetime")
		}
	}
	*t = MyDateString(localTime)

	return nil
}

func (t *MyDateString) StartOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		0, 0, 0, 0,
		location,
	)

	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}

func (t *MyDateString) EndOfDayUTCTime(timezone string) error {
	// do nothing if the pointer is nil
	if t == nil {
		return nil
	}

	localTime := time.Time(*t)

	if timezone == "" {
		timezone = "Asia/Yangon"
	}

	location, err := time.LoadLocation(timezone)
	if err != nil {
		return err
	}

	localTimeInZone := time.Date(
		localTime.Year(), localTime.Month(), localTime.Day(),
		23, 59, 59, 999,
		location,
	)

	utcTime := localTimeInZone.In(time.UTC)
	*t = MyDateString(utcTime)

	return nil
}
