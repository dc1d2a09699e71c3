package epoch

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// sast is the zone the sample bookmark timestamps were recorded in.
var sast = time.FixedZone("SAST", 2*60*60)

func TestFromChrome(t *testing.T) {
	tests := map[string]struct {
		input   any
		want    string
		wantErr bool
	}{
		"numeric string": {input: "13169330714873550", want: "2018-04-27 21:25"},
		"json number":    {input: json.Number("13169330714873550"), want: "2018-04-27 21:25"},
		"int64":          {input: int64(13169330714873550), want: "2018-04-27 21:25"},
		"float64":        {input: float64(13169330714873550), want: "2018-04-27 21:25"},
		"unix epoch":     {input: "11644473600000000", want: "1970-01-01 02:00"},
		"padded string":  {input: " 13169330714873550 ", want: "2018-04-27 21:25"},
		"non-numeric":    {input: "yesterday", wantErr: true},
		"bool":           {input: true, wantErr: true},
		"nil":            {input: nil, wantErr: true},
		"map":            {input: map[string]any{}, wantErr: true},
		"empty string":   {input: "", wantErr: true},
		"not a number":   {input: "NaN", wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := FromChrome(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("FromChrome() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				if !errors.Is(err, ErrNotNumeric) {
					t.Errorf("FromChrome() error = %v, want ErrNotNumeric", err)
				}
				var te *TypeError
				if !errors.As(err, &te) {
					t.Errorf("FromChrome() error type = %T, want *TypeError", err)
				}
				return
			}
			if s := Format(got, sast); s != tc.want {
				t.Errorf("FromChrome() = %q, want %q", s, tc.want)
			}
		})
	}
}

func TestFromOneTab(t *testing.T) {
	tests := map[string]struct {
		input    any
		wantUnix int64
		wantErr  bool
	}{
		"int":            {input: 1600000000000, wantUnix: 1600000000},
		"int64 rounding": {input: int64(1600000000999), wantUnix: 1600000000},
		"float64":        {input: 1600000000123.0, wantUnix: 1600000000},
		"json number":    {input: json.Number("1600000000000"), wantUnix: 1600000000},
		"decimal string": {input: "1600000000000.5", wantUnix: 1600000000},
		"non-numeric":    {input: "abc", wantErr: true},
		"slice":          {input: []int{1}, wantErr: true},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := FromOneTab(tc.input)
			if (err != nil) != tc.wantErr {
				t.Fatalf("FromOneTab() error = %v, wantErr %v", err, tc.wantErr)
			}
			if err != nil {
				return
			}
			if got.Unix() != tc.wantUnix {
				t.Errorf("FromOneTab().Unix() = %d, want %d", got.Unix(), tc.wantUnix)
			}
		})
	}
}

func TestFromUnix(t *testing.T) {
	got, err := FromUnix("1524857114")
	if err != nil {
		t.Fatalf("FromUnix() unexpected error: %v", err)
	}
	if s := Format(got, sast); s != "2018-04-27 21:25" {
		t.Errorf("FromUnix() = %q, want %q", s, "2018-04-27 21:25")
	}

	if _, err := FromUnix(struct{}{}); !errors.Is(err, ErrNotNumeric) {
		t.Errorf("FromUnix(struct) error = %v, want ErrNotNumeric", err)
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2020, 9, 13, 12, 26, 59, 999, time.UTC)

	if got := Format(ts, time.UTC); got != "2020-09-13 12:26" {
		t.Errorf("Format(UTC) = %q, want %q", got, "2020-09-13 12:26")
	}
	if got := Format(ts, sast); got != "2020-09-13 14:26" {
		t.Errorf("Format(SAST) = %q, want %q", got, "2020-09-13 14:26")
	}
}

func TestSameInstantAcrossEpochs(t *testing.T) {
	chrome, err := FromChrome("13244473600000000")
	if err != nil {
		t.Fatal(err)
	}
	onetab, err := FromOneTab(1600000000000)
	if err != nil {
		t.Fatal(err)
	}
	unix, err := FromUnix(1600000000)
	if err != nil {
		t.Fatal(err)
	}
	if !chrome.Equal(onetab) || !onetab.Equal(unix) {
		t.Errorf("epochs disagree: chrome=%v onetab=%v unix=%v", chrome, onetab, unix)
	}
	if Format(chrome, sast) != Format(onetab, sast) {
		t.Errorf("formatted values differ")
	}
}
