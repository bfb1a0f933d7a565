package trace

import (
	"os"
	"testing"
)

func records(seed int64, from, to int) []Record {
	out := make([]Record, 0, to-from+1)
	for s := from; s <= to; s++ {
		out = append(out, Record{Seed: seed, Step: s, Time: float64(s) * 0.5, Reaction: s % 4, Site1: s, Site2: -1})
	}
	return out
}

func TestJSONLZstdWriter_AppendThenRead_PreservesOrder(t *testing.T) {
	// GIVEN a writer and two frames for one seed
	w := NewJSONLZstdWriter(t.TempDir(), "trajectory")
	if err := w.Append(7, records(7, 1, 3)); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(7, records(7, 4, 5)); err != nil {
		t.Fatal(err)
	}

	// WHEN read back
	got, err := w.Read(7)
	if err != nil {
		t.Fatal(err)
	}

	// THEN every record is returned in step order
	if len(got) != 5 {
		t.Fatalf("expected 5 records, got %d", len(got))
	}
	for i, r := range got {
		if r.Step != i+1 || r.Seed != 7 || r.Site2 != -1 {
			t.Errorf("record %d: unexpected %+v", i, r)
		}
	}
}

func TestJSONLZstdWriter_SeedsAreSeparateFiles(t *testing.T) {
	w := NewJSONLZstdWriter(t.TempDir(), "trajectory")
	if err := w.Append(1, records(1, 1, 2)); err != nil {
		t.Fatal(err)
	}
	if err := w.Append(2, records(2, 1, 4)); err != nil {
		t.Fatal(err)
	}
	if w.Path(1) == w.Path(2) {
		t.Fatal("seeds share a file")
	}
	one, _ := w.Read(1)
	two, _ := w.Read(2)
	if len(one) != 2 || len(two) != 4 {
		t.Errorf("expected 2 and 4 records, got %d and %d", len(one), len(two))
	}
}

func TestJSONLZstdWriter_ReadMissing_ReturnsNothing(t *testing.T) {
	w := NewJSONLZstdWriter(t.TempDir(), "trajectory")
	got, err := w.Read(99)
	if err != nil || len(got) != 0 {
		t.Errorf("expected no records and no error, got %d records, err=%v", len(got), err)
	}
}

func TestJSONLZstdWriter_CorruptTail_IsDropped(t *testing.T) {
	// GIVEN a valid frame followed by garbage
	w := NewJSONLZstdWriter(t.TempDir(), "trajectory")
	if err := w.Append(3, records(3, 1, 4)); err != nil {
		t.Fatal(err)
	}
	f, err := os.OpenFile(w.Path(3), os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.Write([]byte{0x28, 0xb5, 0x2f, 0xfd, 0x01}); err != nil {
		t.Fatal(err)
	}
	f.Close()

	// WHEN read back
	got, err := w.Read(3)

	// THEN the intact frame survives
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Errorf("expected 4 intact records, got %d", len(got))
	}
}

func TestJSONLZstdWriter_Truncate(t *testing.T) {
	w := NewJSONLZstdWriter(t.TempDir(), "trajectory")
	if err := w.Append(5, records(5, 1, 10)); err != nil {
		t.Fatal(err)
	}

	if err := w.Truncate(5, 6); err != nil {
		t.Fatal(err)
	}
	got, _ := w.Read(5)
	if len(got) != 6 || got[5].Step != 6 {
		t.Fatalf("expected steps 1..6 after truncation, got %d records", len(got))
	}

	// Appending after truncation continues the same file.
	if err := w.Append(5, records(5, 7, 8)); err != nil {
		t.Fatal(err)
	}
	got, _ = w.Read(5)
	if len(got) != 8 {
		t.Errorf("expected 8 records, got %d", len(got))
	}

	if err := w.Truncate(5, 0); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(w.Path(5)); !os.IsNotExist(err) {
		t.Errorf("expected file removed when nothing is kept, stat err=%v", err)
	}
}
