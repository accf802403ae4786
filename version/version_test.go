package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSetTapVersion(t *testing.T) {
	tt := []struct {
		in   string
		want string
	}{
		{"0.3.1", "v0.3.1"},
		{"v1.0.0-beta.1", "v1.0.0-beta.1"},
		{"dev", "dev"},
	}
	for _, tc := range tt {
		v := &Version{}
		v.SetTapVersion(tc.in)
		assert.Equal(t, tc.want, v.GetTapVersion())
	}
}
