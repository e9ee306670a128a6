// export_test.go exports private hooks for white-box testing.
package app

// WithEnvironment overrides the process environment and working directory the App reads.
func (a *App) WithEnvironment(env []string, dir string) *App {
	a.environ = func() []string { return env }
	a.getwd = func() (string, error) { return dir, nil }
	return a
}
