package emitter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/greenroom/internal/core/domain"
)

func TestQuote(t *testing.T) {
	assert.Equal(t, `'plain'`, quote("plain"))
	assert.Equal(t, `'it'\''s'`, quote("it's"))
	assert.Equal(t, `''`, quote(""))
}

func TestPrintfFormat(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"channel = \"1.80\"\n", `channel = "1.80"\012`},
		{"100%", "100%%"},
		{`a\b`, `a\\b`},
		{"\t1", `\0111`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, printfFormat([]byte(tt.in)), tt.in)
	}
}

func TestEnvQuote(t *testing.T) {
	assert.Equal(t, `"plain"`, envQuote("plain"))
	assert.Equal(t, `"a \"b\" \$HOME \\n"`, envQuote(`a "b" $HOME \n`))
}

func TestMountSpec(t *testing.T) {
	assert.Equal(t,
		"type=bind,from=src-1,source=/,target=/work,rw",
		mountSpec(domain.Mount{From: "src-1", Source: "/", Target: "/work", Writable: true}))
	assert.Equal(t,
		`type=bind,from=ctx-native-1-0,source=/,"target=/opt/a,b"`,
		mountSpec(domain.Mount{From: "ctx-native-1-0", Source: "/", Target: "/opt/a,b"}))
}

func TestJSONArray(t *testing.T) {
	assert.Equal(t, `["/", "/my dir/"]`, jsonArray("/", "/my dir/"))
}
