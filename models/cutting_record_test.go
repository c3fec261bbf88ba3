package models

import (
	"context"
	"errors"
	"testing"
)

func TestNewCuttingRecordValidate(t *testing.T) {
	ctx := context.Background()

	input := &NewCuttingRecord{
		FabricType:  "Cotton",
		ProductName: "Basic Tee",
		PiecesCount: 100,
		SizeBreakdown: []NewSizeBreakdown{
			{Size: "S", Quantity: 40},
			{Size: "M", Quantity: 60},
		},
	}
	if err := input.validate(ctx); err != nil {
		t.Fatalf("valid input rejected: %v", err)
	}

	var validationErr *ValidationError

	// breakdown must sum to the total pieces count
	input.PiecesCount = 90
	err := input.validate(ctx)
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for sum mismatch; got %v", err)
	}
	input.PiecesCount = 100

	// duplicate sizes within one record are rejected
	input.SizeBreakdown = []NewSizeBreakdown{
		{Size: "S", Quantity: 40},
		{Size: "S", Quantity: 60},
	}
	err = input.validate(ctx)
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected validation error for duplicate size; got %v", err)
	}
}

func TestRemainingSizes(t *testing.T) {
	record := &CuttingRecord{
		CuttingId:   "CUT0001",
		PiecesCount: 100,
		SizeBreakdown: []SizeBreakdown{
			{Size: "S", Quantity: 40, Position: 0},
			{Size: "M", Quantity: 60, Position: 1},
		},
	}

	// no assignments yet: everything remains
	got := remainingSizes(record, nil)
	if len(got) != 2 {
		t.Fatalf("expected 2 available sizes; got %d", len(got))
	}
	if got[0].Size != "S" || got[0].RemainingQuantity != 40 || got[0].AssignedQuantity != 0 {
		t.Fatalf("unexpected S row: %+v", got[0])
	}

	// partial assignments accumulate per size
	orders := []*ManufacturingOrder{
		{Size: "S", Quantity: 15},
		{Size: "S", Quantity: 10},
	}
	got = remainingSizes(record, orders)
	if len(got) != 2 {
		t.Fatalf("expected 2 available sizes; got %d", len(got))
	}
	if got[0].AssignedQuantity != 25 || got[0].RemainingQuantity != 15 {
		t.Fatalf("expected S assigned=25 remaining=15; got %+v", got[0])
	}

	// fully assigned sizes drop out of the assignable set
	orders = append(orders, &ManufacturingOrder{Size: "S", Quantity: 15})
	got = remainingSizes(record, orders)
	if len(got) != 1 || got[0].Size != "M" {
		t.Fatalf("expected only M remaining; got %+v", got)
	}

	// everything assigned: empty set, not an error
	orders = append(orders, &ManufacturingOrder{Size: "M", Quantity: 60})
	got = remainingSizes(record, orders)
	if len(got) != 0 {
		t.Fatalf("expected no available sizes; got %+v", got)
	}
}
