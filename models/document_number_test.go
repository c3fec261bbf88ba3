package models

import (
	"regexp"
	"testing"
	"time"
)

func TestParseDocumentNumber(t *testing.T) {
	cases := []struct {
		prefix string
		id     string
		want   int
		ok     bool
	}{
		{DocumentPrefixCutting, "CUT0001", 1, true},
		{DocumentPrefixCutting, "CUT0042", 42, true},
		{DocumentPrefixCutting, "CUT10000", 10000, true},
		{DocumentPrefixManufacturing, "MFG0007", 7, true},
		{DocumentPrefixCutting, "MFG0001", 0, false},
		{DocumentPrefixCutting, "CUT", 0, false},
		{DocumentPrefixCutting, "CUT12A", 0, false},
		{DocumentPrefixCutting, "cut0001", 0, false},
		{DocumentPrefixCutting, "", 0, false},
	}
	for _, c := range cases {
		got, ok := ParseDocumentNumber(c.prefix, c.id)
		if ok != c.ok || got != c.want {
			t.Errorf("ParseDocumentNumber(%q, %q) = (%d, %v); want (%d, %v)", c.prefix, c.id, got, ok, c.want, c.ok)
		}
	}
}

func TestFormatDocumentNumber(t *testing.T) {
	if got := FormatDocumentNumber(DocumentPrefixCutting, 1); got != "CUT0001" {
		t.Errorf("expected CUT0001; got %s", got)
	}
	if got := FormatDocumentNumber(DocumentPrefixProduct, 9999); got != "PRD9999" {
		t.Errorf("expected PRD9999; got %s", got)
	}
	// padding grows past 4 digits instead of truncating
	if got := FormatDocumentNumber(DocumentPrefixFabric, 10001); got != "FAB10001" {
		t.Errorf("expected FAB10001; got %s", got)
	}
}

func TestNextDocumentNumberFrom(t *testing.T) {
	if got := NextDocumentNumberFrom(DocumentPrefixCutting, nil); got != "CUT0001" {
		t.Errorf("empty set: expected CUT0001; got %s", got)
	}
	// max+1, not count+1: gaps from deletions must not cause reuse
	ids := []string{"CUT0001", "CUT0005"}
	if got := NextDocumentNumberFrom(DocumentPrefixCutting, ids); got != "CUT0006" {
		t.Errorf("gapped set: expected CUT0006; got %s", got)
	}
	// ids of other prefixes and malformed ids are ignored
	ids = []string{"CUT0003", "MFG0099", "CUTX", "CUT"}
	if got := NextDocumentNumberFrom(DocumentPrefixCutting, ids); got != "CUT0004" {
		t.Errorf("mixed set: expected CUT0004; got %s", got)
	}
	ids = []string{"MFG9999"}
	if got := NextDocumentNumberFrom(DocumentPrefixManufacturing, ids); got != "MFG10000" {
		t.Errorf("rollover: expected MFG10000; got %s", got)
	}
}

func TestGenerateTransactionId(t *testing.T) {
	now := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	if got := GenerateTransactionId(now, 42); got != "TXN202603140926530042" {
		t.Errorf("expected TXN202603140926530042; got %s", got)
	}

	// timestamp is normalized to UTC before formatting
	yangon := time.FixedZone("Asia/Yangon", int((6*time.Hour + 30*time.Minute).Seconds()))
	local := time.Date(2026, 3, 14, 15, 56, 53, 0, yangon)
	if got := GenerateTransactionId(local, 42); got != "TXN202603140926530042" {
		t.Errorf("expected UTC-normalized id; got %s", got)
	}

	pattern := regexp.MustCompile(`^TXN\d{18}$`)
	if got := GenerateTransactionId(time.Now(), 9999); !pattern.MatchString(got) {
		t.Errorf("id %q does not match TXN + 14-digit timestamp + 4-digit suffix", got)
	}
}
