package domain

// ValidCPF checks the CPF check digits over a digits-only value.
//
// The two check digits are computed modulo 11: the first over digits 1..9
// with positional weights 10..2, the second over digits 1..10 (including the
// first check digit) with weights 11..2. A remainder of 10 or 11 maps to 0.
// Values with all eleven digits identical pass the arithmetic but are
// reserved, so they are rejected explicitly.
//
// An empty value is accepted: CPF is optional at signup and presence is
// enforced elsewhere.
func ValidCPF(cpf string) bool {
	if cpf == "" {
		return true
	}
	if len(cpf) != 11 {
		return false
	}
	allSame := true
	for i := 1; i < 11; i++ {
		if cpf[i] != cpf[0] {
			allSame = false
			break
		}
	}
	if allSame {
		return false
	}

	s1, s2 := 0, 0
	for i := 0; i < 9; i++ {
		n := int(cpf[i] - '0')
		s1 += n * (10 - i)
		s2 += n * (11 - i)
	}
	d1 := 11 - s1%11
	if d1 >= 10 {
		d1 = 0
	}
	s2 += d1 * 2
	d2 := 11 - s2%11
	if d2 >= 10 {
		d2 = 0
	}
	return d1 == int(cpf[9]-'0') && d2 == int(cpf[10]-'0')
}
