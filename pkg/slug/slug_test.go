package slug

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMake(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple name", "United States", "united-states"},
		{"already lowercase", "germany", "germany"},
		{"punctuation collapses", "Côte d'Ivoire!!", "côte-d-ivoire"},
		{"run of separators", "foo -- bar__baz", "foo-bar-baz"},
		{"leading and trailing separators", "  --Hello World-- ", "hello-world"},
		{"digits survive", "Top 10 Cities", "top-10-cities"},
		{"empty input", "", ""},
		{"only separators", "---", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Make(tc.in))
		})
	}
}
