package money

import "testing"

func TestParseCents(t *testing.T) {
	tests := []struct {
		token         string
		allowNegative bool
		want          int64
		wantErr       bool
	}{
		{token: "12", want: 1200},
		{token: "12.34", want: 1234},
		{token: "$12.34", want: 1234},
		{token: "$ 12.34", want: 1234},
		{token: "12,34", want: 1234},
		{token: "12.3", want: 1230},
		{token: "0.05", want: 5},
		{token: "5.00-", allowNegative: true, want: -500},
		{token: "  $7.25  ", want: 725},

		{token: "5.00-", allowNegative: false, wantErr: true},
		{token: "1,234.56", wantErr: true},
		{token: "1,234", wantErr: true},
		{token: "12.345", wantErr: true},
		{token: "-12.34", wantErr: true},
		{token: "abc", wantErr: true},
		{token: "", wantErr: true},
		{token: "   ", wantErr: true},
		{token: "99999999", wantErr: true}, // over the safety bound
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := ParseCents(tt.token, tt.allowNegative)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseCents(%q) error = %v, wantErr %v", tt.token, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseCents(%q) = %d, want %d", tt.token, got, tt.want)
			}
		})
	}
}

func TestFormatCents(t *testing.T) {
	tests := []struct {
		cents int64
		want  string
	}{
		{0, "$0.00"},
		{5, "$0.05"},
		{1234, "$12.34"},
		{100000, "$1000.00"},
		{-500, "-$5.00"},
	}

	for _, tt := range tests {
		if got := FormatCents(tt.cents); got != tt.want {
			t.Errorf("FormatCents(%d) = %q, want %q", tt.cents, got, tt.want)
		}
	}
}
