package buildx

import (
	"bufio"
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	"go.trai.ch/greenroom/internal/core/domain"
	"go.trai.ch/greenroom/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sys/unix"
)

var _ ports.BuilderManager = (*Manager)(nil)

// creationAttempts bounds how often one Ensure tries to bring the builder up.
const creationAttempts = 2

// builderInfo is what `docker buildx inspect` reports about an existing builder.
type builderInfo struct {
	Driver string
	Image  string
	Status string
}

// Manager implements ports.BuilderManager for the docker buildx client.
type Manager struct {
	cfg    *domain.Config
	exec   ports.Executor
	images ports.ImageResolver
	logger ports.Logger
}

// NewManager creates a new Manager.
func NewManager(cfg *domain.Config, exec ports.Executor, images ports.ImageResolver, logger ports.Logger) *Manager {
	return &Manager{
		cfg:    cfg,
		exec:   exec,
		images: images,
		logger: logger,
	}
}

// Ensure returns a usable handle. Only the managed builder is inspected and converged;
// a configured builder name and the podman runner are trusted as-is.
func (m *Manager) Ensure(ctx context.Context) (*domain.BuilderHandle, error) {
	builderName, managed := m.cfg.BuilderPolicy()
	if m.cfg.Runner != domain.RunnerDocker {
		builderName, managed = "", false
	}

	handle := &domain.BuilderHandle{
		Name:    builderName,
		State:   domain.BuilderCurrent,
		Image:   m.cfg.BuilderImage,
		Managed: managed,
		CacheTo: m.cfg.CacheTo,
	}
	handle.CacheFrom = m.cacheImports(ctx)

	if !managed {
		return handle, nil
	}

	unlock, err := m.lock(builderName)
	if err != nil {
		return nil, err
	}
	defer unlock()

	if err := m.converge(ctx, handle); err != nil {
		return nil, err
	}
	return handle, nil
}

// Remove deletes the managed builder.
func (m *Manager) Remove(ctx context.Context, purge bool) error {
	builderName, managed := m.cfg.BuilderPolicy()
	if !managed || m.cfg.Runner != domain.RunnerDocker {
		m.logger.Warn("builder is not managed, nothing to remove", "builder", builderName, "runner", string(m.cfg.Runner))
		return nil
	}

	unlock, err := m.lock(builderName)
	if err != nil {
		return err
	}
	defer unlock()

	if _, ok := m.inspect(ctx, builderName); !ok {
		return nil
	}
	if stderr, err := m.remove(ctx, builderName, !purge); err != nil {
		return zerr.With(zerr.With(zerr.Wrap(err, "failed to remove builder"), "builder", builderName), "stderr", stderr)
	}
	m.logger.Info("builder removed", "builder", builderName, "kept_state", !purge)
	return nil
}

func (m *Manager) cacheImports(ctx context.Context) []string {
	if len(m.cfg.CacheFrom) == 0 || !m.cfg.Has(domain.ExperimentCacheCheck) {
		return m.cfg.CacheFrom
	}
	return m.images.Reachable(ctx, m.cfg.CacheFrom)
}

// converge drives the handle to Current, or fails with ErrBuilderUnavailable.
func (m *Manager) converge(ctx context.Context, h *domain.BuilderHandle) error {
	info, present := m.inspect(ctx, h.Name)
	switch {
	case !present:
		h.State = domain.BuilderAbsent
	case !m.sameImage(info.Image) || info.Status != "running":
		m.logger.Info("builder is stale", "builder", h.Name, "image", info.Image, "want_image", h.Image, "status", info.Status)
		if err := h.Transition(domain.BuilderStale); err != nil {
			return err
		}
	default:
		return nil
	}

	var lastStderr string
	for range creationAttempts {
		stderr, err := m.attempt(ctx, h)
		if err != nil {
			return err
		}
		if h.Usable() {
			m.logger.Info("builder ready", "builder", h.Name, "image", h.Image)
			return nil
		}
		lastStderr = stderr
	}

	err := zerr.With(zerr.Wrap(domain.ErrBuilderUnavailable, "builder could not be created"), "builder", h.Name)
	return zerr.With(err, "stderr", lastStderr)
}

// attempt performs one creation or recreation. A failed command leaves the handle
// in a state from which the next attempt can start; only a rejected transition is an error.
func (m *Manager) attempt(ctx context.Context, h *domain.BuilderHandle) (string, error) {
	switch h.State {
	case domain.BuilderAbsent:
		if err := h.Transition(domain.BuilderCreating); err != nil {
			return "", err
		}
		stderr, err := m.create(ctx, h)
		if err != nil {
			m.logger.Warn("builder creation failed", "builder", h.Name, "stderr", stderr)
			return stderr, h.Transition(domain.BuilderStale)
		}
		return "", h.Transition(domain.BuilderCurrent)

	case domain.BuilderStale:
		if err := h.Transition(domain.BuilderRecreating); err != nil {
			return "", err
		}
		if stderr, err := m.remove(ctx, h.Name, true); err != nil {
			m.logger.Warn("removing builder with kept state failed, discarding state", "builder", h.Name, "stderr", stderr)
			if stderr, err := m.remove(ctx, h.Name, false); err != nil {
				m.logger.Warn("removing builder failed", "builder", h.Name, "stderr", stderr)
			}
		}
		stderr, err := m.create(ctx, h)
		if err != nil {
			m.logger.Warn("builder recreation failed", "builder", h.Name, "stderr", stderr)
			return stderr, h.Transition(domain.BuilderAbsent)
		}
		return "", h.Transition(domain.BuilderCurrent)

	default:
		return "", zerr.With(zerr.Wrap(domain.ErrInvalidBuilderTransition, "unexpected builder state"), "state", string(h.State))
	}
}

func (m *Manager) inspect(ctx context.Context, builderName string) (builderInfo, bool) {
	var stdout, stderr bytes.Buffer
	code, err := m.exec.Execute(ctx, &domain.Command{
		Path: "docker",
		Args: []string{"buildx", "inspect", builderName},
	}, &stdout, &stderr)
	if err != nil || code != 0 {
		m.logger.Debug("builder not found", "builder", builderName, "stderr", textTail(stderr.Bytes(), stderrTailLines))
		return builderInfo{}, false
	}
	return parseInspect(stdout.Bytes()), true
}

func (m *Manager) create(ctx context.Context, h *domain.BuilderHandle) (string, error) {
	args := []string{
		"buildx", "create",
		"--name", h.Name,
		"--driver", "docker-container",
		"--driver-opt", "image=" + h.Image,
		"--bootstrap",
	}
	if m.cfg.Network == domain.NetworkHost {
		args = append(args, "--buildkitd-flags", "--allow-insecure-entitlement=network.host")
	}
	return m.run(ctx, args)
}

func (m *Manager) remove(ctx context.Context, builderName string, keepState bool) (string, error) {
	args := []string{"buildx", "rm"}
	if keepState {
		args = append(args, "--keep-state")
	}
	return m.run(ctx, append(args, builderName))
}

// run executes a buildx subcommand and returns the tail of its stderr.
func (m *Manager) run(ctx context.Context, args []string) (string, error) {
	var stdout, stderr bytes.Buffer
	code, err := m.exec.Execute(ctx, &domain.Command{Path: "docker", Args: args}, &stdout, &stderr)
	out := textTail(stderr.Bytes(), stderrTailLines)
	if err != nil {
		return out, err
	}
	if code != 0 {
		return out, zerr.With(zerr.New("buildx command failed"), "exit_code", code)
	}
	return out, nil
}

// sameImage compares image references after normalising registry and tag defaults.
func (m *Manager) sameImage(actual string) bool {
	if actual == "" {
		// buildx falls back to its own default image when no driver option is set.
		actual = domain.DefaultBuilderImage
	}
	return normalizeImage(actual) == normalizeImage(m.cfg.BuilderImage)
}

func normalizeImage(ref string) string {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return ref
	}
	return parsed.Name()
}

// lock takes the exclusive builder lock for the lifetime of one transition.
func (m *Manager) lock(builderName string) (func(), error) {
	if err := os.MkdirAll(m.cfg.StateDir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrLockFailed, err.Error()), "path", m.cfg.StateDir)
	}
	path := filepath.Join(m.cfg.StateDir, "builder-"+builderName+".lock")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, domain.PrivateFilePerm) //nolint:gosec // Path is under the state directory
	if err != nil {
		return nil, zerr.With(zerr.Wrap(domain.ErrLockFailed, err.Error()), "path", path)
	}
	if err := unix.Flock(int(f.Fd()), unix.LOCK_EX); err != nil { //nolint:gosec // fd fits in int
		_ = f.Close()
		return nil, zerr.With(zerr.Wrap(domain.ErrLockFailed, err.Error()), "path", path)
	}
	return func() {
		_ = unix.Flock(int(f.Fd()), unix.LOCK_UN) //nolint:gosec // fd fits in int
		_ = f.Close()
	}, nil
}

// parseInspect reads the human-readable output of `docker buildx inspect`.
// Only the first node is considered.
func parseInspect(out []byte) builderInfo {
	var info builderInfo
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		switch strings.TrimSpace(key) {
		case "Driver":
			if info.Driver == "" {
				info.Driver = value
			}
		case "Driver Options":
			if info.Image == "" {
				info.Image = driverOption(value, "image")
			}
		case "Status":
			if info.Status == "" {
				info.Status = value
			}
		}
	}
	return info
}

// driverOption extracts key="value" from a space-separated option list.
func driverOption(options, key string) string {
	for field := range strings.FieldsSeq(options) {
		k, v, ok := strings.Cut(field, "=")
		if ok && k == key {
			return strings.Trim(v, `"`)
		}
	}
	return ""
}
