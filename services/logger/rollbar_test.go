package logsvc

import (
	"bytes"
	"log"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/stage/core"
	"github.com/trezcool/stage/core/user"
)

func newTestLogger(buf *bytes.Buffer) *RollbarLogger {
	conf := &core.Config{Env: "TEST", TestMode: true}
	return NewRollbarLogger(log.New(buf, "", 0), conf)
}

func TestRollbarLogger_prepare(t *testing.T) {
	l := newTestLogger(new(bytes.Buffer))
	err := errors.New("boom")
	usr := user.User{ID: "1", Username: "jdoe"}

	args := l.prepare("msg", []interface{}{err, usr, map[string]interface{}{"k": "v"}})
	assert.Equal(t, []interface{}{"msg", err, map[string]interface{}{"k": "v"}}, args)
}

func TestRollbarLogger_print(t *testing.T) {
	buf := new(bytes.Buffer)
	l := newTestLogger(buf)

	l.Warn("something odd", errors.New("boom"), user.User{ID: "1"})
	out := buf.String()
	assert.Contains(t, out, "WARN: something odd")
	assert.Contains(t, out, "boom")
	assert.NotContains(t, out, "ID:1")
}
