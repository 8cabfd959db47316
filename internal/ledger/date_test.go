package ledger

import (
	"encoding/json"
	"testing"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "valid", input: "2024-03-10", want: "2024-03-10"},
		{name: "trims whitespace", input: " 2024-03-10 ", want: "2024-03-10"},
		{name: "rejects slashes", input: "2024/03/10", wantErr: true},
		{name: "rejects month 13", input: "2024-13-01", wantErr: true},
		{name: "rejects empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseDate(%q) error = nil, want error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDate(%q) error = %v", tt.input, err)
			}
			if got.String() != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestDate_PrevNext(t *testing.T) {
	d := NewDate(2024, 3, 1)
	if got := d.Prev().String(); got != "2024-02-29" {
		t.Errorf("Prev() = %s, want 2024-02-29 (leap year)", got)
	}
	if got := d.Next().String(); got != "2024-03-02" {
		t.Errorf("Next() = %s, want 2024-03-02", got)
	}
}

func TestDate_JSONRoundTrip(t *testing.T) {
	d := NewDate(2024, 3, 10)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(data) != `"2024-03-10"` {
		t.Errorf("Marshal() = %s, want \"2024-03-10\"", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if !back.Equal(d) {
		t.Errorf("round trip = %s, want %s", back, d)
	}
}
