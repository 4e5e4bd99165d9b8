package models

import "testing"

func TestParseMoney(t *testing.T) {
	ok := map[string]Money{
		"553":     55300,
		"553.5":   55350,
		"553.50":  55350,
		" 0.05 ":  5,
		"-12.30":  -1230,
		"1106.00": 110600,
	}
	for in, want := range ok {
		got, err := ParseMoney(in)
		if err != nil || got != want {
			t.Fatalf("ParseMoney(%q) = %v, %v; want %v", in, got, err, want)
		}
	}

	for _, in := range []string{"", "-", "1.-5", "1.+5", "+1", ".5", "1.", "1.234", "1,5", "--1", "abc", "1.5a"} {
		if got, err := ParseMoney(in); err == nil {
			t.Fatalf("ParseMoney(%q) = %v, want error", in, got)
		}
	}
}

func TestMoneyJSON(t *testing.T) {
	var m Money
	if err := m.UnmarshalJSON([]byte(`"553.50"`)); err != nil || m != 55350 {
		t.Fatalf("UnmarshalJSON = %v, %v", m, err)
	}
	b, _ := Money(55300).MarshalJSON()
	if string(b) != "553.00" {
		t.Fatalf("MarshalJSON = %s", b)
	}
}
