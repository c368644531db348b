package overview

import (
	"errors"
	"strings"
	"testing"
)

func TestParseFormat_Canonical(t *testing.T) {
	lines := []string{
		"Subject:",
		"From:",
		"Date:",
		"Message-ID:",
		"References:",
		":bytes",
		":lines",
	}

	f, err := ParseFormat(lines)
	if err != nil {
		t.Fatalf("ParseFormat failed: %v", err)
	}
	want := Default()
	if len(f) != len(want) {
		t.Fatalf("Expected %d fields, got %d", len(want), len(f))
	}
	for i := range want {
		if f[i] != want[i] {
			t.Errorf("Field %d: expected %q, got %q", i, want[i], f[i])
		}
	}
}

func TestParseFormat_Aliases(t *testing.T) {
	lines := []string{
		"Subject:",
		"From:",
		"Date:",
		"Message-ID:",
		"References:",
		"Bytes:",
		"Lines:",
	}

	f, err := ParseFormat(lines)
	if err != nil {
		t.Fatalf("ParseFormat with aliases failed: %v", err)
	}
	if f[5] != ":bytes" || f[6] != ":lines" {
		t.Errorf("Aliases not normalized: %q %q", f[5], f[6])
	}
}

func TestParseFormat_MetadataColonForms(t *testing.T) {
	lines := []string{
		"Subject:",
		"From:",
		"Date:",
		"Message-ID:",
		"References:",
		":bytes:",
		":lines:",
		"Xref:full",
	}

	f, err := ParseFormat(lines)
	if err != nil {
		t.Fatalf("ParseFormat failed: %v", err)
	}
	if f[5] != ":bytes" || f[6] != ":lines" {
		t.Errorf("Metadata names not normalized: %q %q", f[5], f[6])
	}
	if f[7] != "xref" {
		t.Errorf("Expected extended field %q, got %q", "xref", f[7])
	}
}

func TestParseFormat_TooShort(t *testing.T) {
	_, err := ParseFormat([]string{"Subject:", "From:"})
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}
}

func TestParseFormat_WrongPrefix(t *testing.T) {
	lines := []string{
		"From:", // swapped with Subject
		"Subject:",
		"Date:",
		"Message-ID:",
		"References:",
		":bytes",
		":lines",
	}
	_, err := ParseFormat(lines)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat, got %v", err)
	}
}

func TestParseFormat_MetadataAfterDefaults(t *testing.T) {
	lines := []string{
		"Subject:", "From:", "Date:", "Message-ID:", "References:",
		":bytes", ":lines", ":status",
	}
	_, err := ParseFormat(lines)
	if !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("Expected ErrInvalidFormat for trailing metadata, got %v", err)
	}
}

func TestParseRecord_Defaults(t *testing.T) {
	line := "123\tS\tF\tD\tM\tR\t12\t34"

	rec, err := ParseRecord(line, Default(), nil)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if rec.Number != 123 {
		t.Errorf("Expected article 123, got %d", rec.Number)
	}
	want := map[string]string{
		"subject":    "S",
		"from":       "F",
		"date":       "D",
		"message-id": "M",
		"references": "R",
		":bytes":     "12",
		":lines":     "34",
	}
	for k, v := range want {
		if rec.Fields[k] != v {
			t.Errorf("Field %q: expected %q, got %q", k, v, rec.Fields[k])
		}
	}
}

func TestParseRecord_ExtendedHeader(t *testing.T) {
	format := append(Default(), "xref")
	line := "123\tS\tF\tD\tM\tR\t12\t34\tXref: news.example foo.bar:1"

	rec, err := ParseRecord(line, format, nil)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if got := rec.Get("xref"); got != "news.example foo.bar:1" {
		t.Errorf("Expected stripped xref value, got %q", got)
	}
}

func TestParseRecord_MissingHeaderName(t *testing.T) {
	format := append(Default(), "xref")
	line := "123\tS\tF\tD\tM\tR\t12\t34\tnews.example foo.bar:1"

	_, err := ParseRecord(line, format, nil)
	if !errors.Is(err, ErrMissingHeaderName) {
		t.Errorf("Expected ErrMissingHeaderName, got %v", err)
	}
}

func TestParseRecord_ExtendedDecoder(t *testing.T) {
	format := append(Default(), "xref")
	line := "1\tS\tF\tD\tM\tR\t1\t1\tXref: raw-value"

	decoded := false
	rec, err := ParseRecord(line, format, func(raw string) string {
		decoded = true
		return strings.ToUpper(raw)
	})
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if !decoded {
		t.Error("Decoder was not applied to the extended field")
	}
	if rec.Get("xref") != "RAW-VALUE" {
		t.Errorf("Expected decoded value, got %q", rec.Get("xref"))
	}
	if rec.Get("subject") != "S" {
		t.Error("Decoder must not touch the default fields")
	}
}

func TestParseRecord_ExtrasDiscarded(t *testing.T) {
	line := "9\tS\tF\tD\tM\tR\t1\t2\textra\tmore"

	rec, err := ParseRecord(line, Default(), nil)
	if err != nil {
		t.Fatalf("ParseRecord failed: %v", err)
	}
	if len(rec.Fields) != 7 {
		t.Errorf("Expected 7 fields, got %d", len(rec.Fields))
	}
}

func TestParseRecord_BadNumber(t *testing.T) {
	_, err := ParseRecord("abc\tS", Default(), nil)
	if !errors.Is(err, ErrBadArticleNumber) {
		t.Errorf("Expected ErrBadArticleNumber, got %v", err)
	}
}

func TestParseRecords_SkipsEmptyLines(t *testing.T) {
	lines := []string{
		"1\tS\tF\tD\tM\tR\t1\t1",
		"",
		"2\tS\tF\tD\tM\tR\t2\t2",
		"",
	}

	recs, err := ParseRecords(lines, Default(), nil)
	if err != nil {
		t.Fatalf("ParseRecords failed: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(recs))
	}
	if recs[0].Number != 1 || recs[1].Number != 2 {
		t.Errorf("Unexpected record numbers: %d %d", recs[0].Number, recs[1].Number)
	}
}

func TestRecord_MessagePackRoundTrip(t *testing.T) {
	rec := Record{
		Number: 42,
		Fields: map[string]string{
			"subject": "hello",
			":bytes":  "1234",
			"xref":    "news.example misc.test:42",
		},
	}

	data, err := rec.ToMessagePack()
	if err != nil {
		t.Fatalf("ToMessagePack failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("ToMessagePack returned empty data")
	}

	decoded, err := FromMessagePack(data)
	if err != nil {
		t.Fatalf("FromMessagePack failed: %v", err)
	}
	if decoded.Number != rec.Number {
		t.Errorf("Expected number %d, got %d", rec.Number, decoded.Number)
	}
	for k, v := range rec.Fields {
		if decoded.Fields[k] != v {
			t.Errorf("Field %q: expected %q, got %q", k, v, decoded.Fields[k])
		}
	}
}

func TestMarshalRecords_RoundTrip(t *testing.T) {
	records := []Record{
		{Number: 1, Fields: map[string]string{"subject": "a"}},
		{Number: 2, Fields: map[string]string{"subject": "b"}},
	}

	data, err := MarshalRecords(records)
	if err != nil {
		t.Fatalf("MarshalRecords failed: %v", err)
	}

	decoded, err := UnmarshalRecords(data)
	if err != nil {
		t.Fatalf("UnmarshalRecords failed: %v", err)
	}
	if len(decoded) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(decoded))
	}
	if decoded[0].Number != 1 || decoded[0].Fields["subject"] != "a" {
		t.Errorf("First record mismatch: %+v", decoded[0])
	}
	if decoded[1].Number != 2 || decoded[1].Fields["subject"] != "b" {
		t.Errorf("Second record mismatch: %+v", decoded[1])
	}
}
