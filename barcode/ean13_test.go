package barcode

import "testing"

func TestChecksum(t *testing.T) {
	cases := []struct {
		digits string
		want   int
	}{
		{"400638133393", 1},
		{"978030640615", 7},
		{"000000000000", 0},
	}
	for _, tc := range cases {
		got, err := Checksum(tc.digits)
		if err != nil {
			t.Fatalf("Checksum(%s): %v", tc.digits, err)
		}
		if got != tc.want {
			t.Fatalf("Checksum(%s) = %d, want %d", tc.digits, got, tc.want)
		}
	}

	if _, err := Checksum("12345"); err == nil {
		t.Fatal("Checksum of a short input succeeded")
	}
	if _, err := Checksum("40063813339x"); err == nil {
		t.Fatal("Checksum of a non-digit input succeeded")
	}
}

func TestEncodeEAN13Validation(t *testing.T) {
	if _, err := EncodeEAN13("4006381333930", true); err == nil {
		t.Fatal("wrong check digit accepted with validation on")
	}
	sym, err := EncodeEAN13("4006381333930", false)
	if err != nil {
		t.Fatalf("EncodeEAN13 without validation: %v", err)
	}
	if sym.Digits != "4006381333931" {
		t.Fatalf("corrected digits = %s, want 4006381333931", sym.Digits)
	}
	if _, err := EncodeEAN13("400638133393", true); err == nil {
		t.Fatal("12 digit input accepted")
	}
}

func TestEncodeEAN13Layout(t *testing.T) {
	sym, err := EncodeEAN13("4006381333931", true)
	if err != nil {
		t.Fatalf("EncodeEAN13: %v", err)
	}

	// Guard patterns: 101 at both ends, 01010 in the middle.
	for i, want := range []bool{true, false, true} {
		if sym.Modules[i] != want {
			t.Fatalf("left guard module %d = %v", i, sym.Modules[i])
		}
		if sym.Modules[92+i] != want {
			t.Fatalf("right guard module %d = %v", 92+i, sym.Modules[92+i])
		}
	}
	for i, want := range []bool{false, true, false, true, false} {
		if sym.Modules[45+i] != want {
			t.Fatalf("center guard module %d = %v", 45+i, sym.Modules[45+i])
		}
	}

	// A leading 0 uses the all-L parity, so the first encoded digit (0 under
	// parity L) is 0001101.
	zeroSym, err := EncodeEAN13("0000000000000", true)
	if err != nil {
		t.Fatalf("EncodeEAN13: %v", err)
	}
	wantDigit := []bool{false, false, false, true, true, false, true}
	for i, want := range wantDigit {
		if zeroSym.Modules[3+i] != want {
			t.Fatalf("first digit module %d = %v, want %v", i, zeroSym.Modules[3+i], want)
		}
	}
}

func TestGuardBar(t *testing.T) {
	guards := 0
	for i := 0; i < ModuleCount; i++ {
		if GuardBar(i) {
			guards++
		}
	}
	if guards != 11 {
		t.Fatalf("guard module count = %d, want 11", guards)
	}
}
