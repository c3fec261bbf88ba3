package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestItemTypeJSON(t *testing.T) {
	b, err := json.Marshal(ItemTypeManufacturing)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"MANUFACTURING"` {
		t.Fatalf(`expected "MANUFACTURING"; got %s`, b)
	}

	var parsed ItemType
	if err := json.Unmarshal([]byte(`"FABRIC"`), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed != ItemTypeFabric {
		t.Fatalf("expected FABRIC; got %s", parsed)
	}

	if err := json.Unmarshal([]byte(`"SHOES"`), &parsed); err == nil {
		t.Fatal("expected error for unknown item type")
	}
	if err := json.Unmarshal([]byte(`5`), &parsed); err == nil {
		t.Fatal("expected error for non-string item type")
	}
}

func TestTransactionActionJSON(t *testing.T) {
	for _, action := range []TransactionAction{
		TransactionActionAdd,
		TransactionActionRemove,
		TransactionActionStockIn,
		TransactionActionStockOut,
		TransactionActionQrGenerated,
	} {
		b, err := json.Marshal(action)
		if err != nil {
			t.Fatalf("marshal %s: %v", action, err)
		}
		var parsed TransactionAction
		if err := json.Unmarshal(b, &parsed); err != nil {
			t.Fatalf("unmarshal %s: %v", b, err)
		}
		if parsed != action {
			t.Fatalf("round trip: expected %s; got %s", action, parsed)
		}
	}

	var parsed TransactionAction
	if err := json.Unmarshal([]byte(`"TRANSFER"`), &parsed); err == nil {
		t.Fatal("expected error for unknown transaction action")
	}
}

func TestManufacturingStatusJSON(t *testing.T) {
	var parsed ManufacturingStatus
	if err := json.Unmarshal([]byte(`"In Progress"`), &parsed); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if parsed != ManufacturingStatusInProgress {
		t.Fatalf("expected In Progress; got %s", parsed)
	}
	if err := json.Unmarshal([]byte(`"Cancelled"`), &parsed); err == nil {
		t.Fatal("expected error for unknown manufacturing status")
	}
}

func TestMyDateStringUnmarshal(t *testing.T) {
	var d MyDateString
	if err := d.UnmarshalJSON([]byte(`"2026-01-15T10:30:00"`)); err != nil {
		t.Fatalf("datetime payload: %v", err)
	}
	want := time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC)
	if !time.Time(d).Equal(want) {
		t.Fatalf("expected %s; got %s", want, time.Time(d))
	}

	// date-only payloads from older clients
	if err := d.UnmarshalJSON([]byte(`"2026-01-15"`)); err != nil {
		t.Fatalf("date-only payload: %v", err)
	}
	want = time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)
	if !time.Time(d).Equal(want) {
		t.Fatalf("expected %s; got %s", want, time.Time(d))
	}

	if err := d.UnmarshalJSON([]byte(`"15/01/2026"`)); err == nil {
		t.Fatal("expected error for unsupported date format")
	}
	if err := d.UnmarshalJSON([]byte(`20260115`)); err == nil {
		t.Fatal("expected error for non-string payload")
	}
}

func TestMyDateStringStartOfDayUTCTime(t *testing.T) {
	d := MyDateString(time.Date(2026, 1, 15, 10, 30, 0, 0, time.UTC))
	if err := d.StartOfDayUTCTime(""); err != nil {
		t.Fatalf("StartOfDayUTCTime: %v", err)
	}
	// default timezone is Asia/Yangon (UTC+06:30)
	want := time.Date(2026, 1, 14, 17, 30, 0, 0, time.UTC)
	if !time.Time(d).Equal(want) {
		t.Fatalf("expected %s; got %s", want, time.Time(d))
	}
}
