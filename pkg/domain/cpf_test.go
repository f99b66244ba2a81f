package domain

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidCPF_KnownValues(t *testing.T) {
	valid := []string{
		"52998224725",
		"11144477735",
		"93541134780",
		"00000000191",
	}
	for _, cpf := range valid {
		assert.True(t, ValidCPF(cpf), "expected %s to be valid", cpf)
	}

	invalid := []string{
		"52998224724", // last digit off by one
		"12345678901",
	}
	for _, cpf := range invalid {
		assert.False(t, ValidCPF(cpf), "expected %s to be invalid", cpf)
	}
}

func TestValidCPF_RejectsRepeatedDigits(t *testing.T) {
	for d := '0'; d <= '9'; d++ {
		cpf := ""
		for i := 0; i < 11; i++ {
			cpf += string(d)
		}
		assert.False(t, ValidCPF(cpf), "repeated-digit value %s must be rejected", cpf)
	}
}

func TestValidCPF_RejectsWrongLength(t *testing.T) {
	assert.False(t, ValidCPF("5299822472"))
	assert.False(t, ValidCPF("529982247250"))
}

func TestValidCPF_EmptyIsOptional(t *testing.T) {
	assert.True(t, ValidCPF(""))
}

// Every single-digit mutation of a valid CPF must fail validation, except
// where the mutation happens to land on another arithmetically valid value.
// Those collisions are a property of the checksum, not a defect.
func TestValidCPF_SingleDigitMutations(t *testing.T) {
	const base = "52998224725"
	rejected := 0
	for pos := 0; pos < 11; pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if base[pos] == d {
				continue
			}
			mutated := base[:pos] + string(d) + base[pos+1:]
			if !ValidCPF(mutated) {
				rejected++
			}
		}
	}
	// The two check digits are a function of the first nine digits, so any
	// mutation of positions 10 or 11 alone must always be rejected.
	for pos := 9; pos < 11; pos++ {
		for d := byte('0'); d <= '9'; d++ {
			if base[pos] == d {
				continue
			}
			mutated := base[:pos] + string(d) + base[pos+1:]
			assert.False(t, ValidCPF(mutated),
				fmt.Sprintf("check-digit mutation %s must be rejected", mutated))
		}
	}
	assert.Greater(t, rejected, 90, "the overwhelming majority of mutations must fail")
}
