package buildx_test

import (
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

// commandMatcher matches a *domain.Command by client and argv.
type commandMatcher struct {
	path string
	args []string
}

func command(path string, args ...string) gomock.Matcher {
	return commandMatcher{path: path, args: args}
}

func (m commandMatcher) Matches(x any) bool {
	cmd, ok := x.(*domain.Command)
	return ok && cmd.Path == m.path && slices.Equal(cmd.Args, m.args)
}

func (m commandMatcher) String() string {
	return fmt.Sprintf("%s %s", m.path, strings.Join(m.args, " "))
}

// respond makes an Execute call write the given streams and return code.
func respond(code int, stdout, stderr string) func(context.Context, *domain.Command, io.Writer, io.Writer) (int, error) {
	return func(_ context.Context, _ *domain.Command, out, errOut io.Writer) (int, error) {
		_, _ = io.WriteString(out, stdout)
		_, _ = io.WriteString(errOut, stderr)
		return code, nil
	}
}

func quietLogger(ctrl *gomock.Controller) *mocks.MockLogger {
	log := mocks.NewMockLogger(ctrl)
	log.EXPECT().Debug(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Info(gomock.Any(), gomock.Any()).AnyTimes()
	log.EXPECT().Warn(gomock.Any(), gomock.Any()).AnyTimes()
	return log
}
