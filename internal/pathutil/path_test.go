package pathutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in, want string
	}{
		{`_WORK\DATA\A.TXT`, "_WORK/DATA/A.TXT"},
		{"_WORK/DATA/A.TXT", "_WORK/DATA/A.TXT"},
		{`A\\B\`, "A//B/"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestBase(t *testing.T) {
	t.Parallel()

	assert.Equal(t, ".", Base(""))
	assert.Equal(t, ".", Base("."))
	assert.Equal(t, "A.TXT", Base("A.TXT"))
	assert.Equal(t, "A.TXT", Base("DATA/SUB/A.TXT"))
}

func TestRelAndDirPrefix(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", Rel("."))
	assert.Equal(t, "DATA", Rel("DATA"))

	assert.Equal(t, "", DirPrefix(""))
	assert.Equal(t, "", DirPrefix("."))
	assert.Equal(t, "DATA/", DirPrefix("DATA"))
}
