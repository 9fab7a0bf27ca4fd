// Package barcode encodes EAN-13 symbols as bar modules for rendering.
package barcode

import "fmt"

// ModuleCount is the fixed width of an EAN-13 symbol in modules: two side
// guards of 3, a center guard of 5, and 12 digits of 7 modules each.
const ModuleCount = 95

// lDigits holds the 7 bit L-code of each digit. G-codes are the bitwise
// reverse of the complement and R-codes the plain complement.
var lDigits = [10]int{0x0D, 0x19, 0x13, 0x3D, 0x23, 0x31, 0x2F, 0x3B, 0x37, 0x0B}

// parities maps the leading digit to the L/G parity pattern of the six
// left-hand digits.
var parities = [10]string{
	"LLLLLL", "LLGLGG", "LLGGLG", "LLGGGL", "LGLLGG",
	"LGGLLG", "LGGGLL", "LGLGLG", "LGLGGL", "LGGLGL",
}

// Symbol is a laid out EAN-13 barcode. Modules[i] reports whether module i
// is a bar; guard modules extend below the digit bars when rendered.
type Symbol struct {
	// Digits is the encoded number with a valid check digit.
	Digits  string
	Modules [ModuleCount]bool
}

// Checksum computes the EAN-13 check digit over the first 12 characters of
// digits.
func Checksum(digits string) (int, error) {
	if len(digits) < 12 {
		return 0, fmt.Errorf("ean13 needs 12 digits, got %d", len(digits))
	}
	sum := 0
	for i := 0; i < 12; i++ {
		d := int(digits[i] - '0')
		if d < 0 || d > 9 {
			return 0, fmt.Errorf("ean13 digit %d is %q, want 0-9", i, digits[i])
		}
		if i%2 == 1 {
			d *= 3
		}
		sum += d
	}
	return (10 - sum%10) % 10, nil
}

// GuardBar reports whether module i belongs to a guard pattern. Guard bars
// are drawn taller than digit bars.
func GuardBar(i int) bool {
	return i < 3 || (i >= 45 && i < 50) || i >= 92
}

// EncodeEAN13 lays out the 13 digit code. When validate is true the last
// digit must match the computed checksum; otherwise it is replaced with the
// correct one.
func EncodeEAN13(code string, validate bool) (*Symbol, error) {
	if len(code) != 13 {
		return nil, fmt.Errorf("ean13 needs 13 digits, got %d", len(code))
	}
	check, err := Checksum(code)
	if err != nil {
		return nil, err
	}
	if got := int(code[12] - '0'); got < 0 || got > 9 {
		return nil, fmt.Errorf("ean13 digit 12 is %q, want 0-9", code[12])
	} else if validate && got != check {
		return nil, fmt.Errorf("ean13 checksum is %d, want %d", got, check)
	}

	s := &Symbol{Digits: code[:12] + string(rune('0'+check))}
	parity := parities[code[0]-'0']

	pos := 0
	bar := func(on bool) {
		s.Modules[pos] = on
		pos++
	}

	// Side guard 101.
	bar(true)
	bar(false)
	bar(true)

	for i := 1; i <= 6; i++ {
		value := lDigits[s.Digits[i]-'0']
		if parity[i-1] == 'G' {
			value ^= 0x7F
			for j := 0; j < 7; j++ {
				bar(value>>j&1 == 1)
			}
			continue
		}
		for j := 6; j >= 0; j-- {
			bar(value>>j&1 == 1)
		}
	}

	// Center guard 01010.
	bar(false)
	bar(true)
	bar(false)
	bar(true)
	bar(false)

	for i := 7; i <= 12; i++ {
		value := lDigits[s.Digits[i]-'0'] ^ 0x7F
		for j := 6; j >= 0; j-- {
			bar(value>>j&1 == 1)
		}
	}

	bar(true)
	bar(false)
	bar(true)
	return s, nil
}
