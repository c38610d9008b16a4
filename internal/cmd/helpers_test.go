package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/harrison/configcat-cli/internal/config"
	"github.com/harrison/configcat-cli/internal/gitinfo"
	"github.com/harrison/configcat-cli/internal/logger"
	"github.com/harrison/configcat-cli/internal/models"
)

type fakeAPI struct {
	mu        sync.Mutex
	flags     []models.Flag
	deleted   []models.DeletedFlag
	getErr    error
	uploadErr error

	products      []models.Product
	configs       map[string][]models.Config
	flagsByConfig map[string][]models.Flag

	configIDs []string
	uploaded  []*models.CodeReferenceRequest
	auth      config.AuthConfig
}

func (f *fakeAPI) GetFlags(ctx context.Context, configID string) ([]models.Flag, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.configIDs = append(f.configIDs, configID)
	if f.flagsByConfig != nil {
		return f.flagsByConfig[configID], f.getErr
	}
	return f.flags, f.getErr
}

func (f *fakeAPI) GetProducts(ctx context.Context) ([]models.Product, error) {
	return f.products, f.getErr
}

func (f *fakeAPI) GetConfigs(ctx context.Context, productID string) ([]models.Config, error) {
	return f.configs[productID], f.getErr
}

func (f *fakeAPI) GetDeletedFlags(ctx context.Context, configID string) ([]models.DeletedFlag, error) {
	return f.deleted, f.getErr
}

func (f *fakeAPI) UploadCodeReferences(ctx context.Context, req *models.CodeReferenceRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploaded = append(f.uploaded, req)
	return f.uploadErr
}

type fakeGit struct {
	info  *gitinfo.Info
	err   error
	paths []string
}

func (g *fakeGit) Gather(path string) (*gitinfo.Info, error) {
	g.paths = append(g.paths, path)
	return g.info, g.err
}

func testDependencies(api *fakeAPI, git *fakeGit) Dependencies {
	return Dependencies{
		NewAPIClient: func(cfg *config.Config, log *logger.ConsoleLogger) APIClient {
			api.auth = cfg.Auth
			return api
		},
		Git: git,
	}
}

// writeConfig writes a config file with credentials and returns its path.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const credentialsConfig = "auth:\n  user: me\n  pass: secret\n"

type cliResult struct {
	stdout string
	stderr string
	code   int
}

// runCLI executes the command line with the given collaborators and a config
// file holding credentials.
func runCLI(t *testing.T, deps Dependencies, stdin string, args ...string) cliResult {
	t.Helper()
	for _, key := range []string{config.EnvAPIHost, config.EnvUsername, config.EnvPassword, config.EnvConfigID} {
		t.Setenv(key, "")
	}

	hasConfig := false
	for _, a := range args {
		if a == "--config" || strings.HasPrefix(a, "--config=") {
			hasConfig = true
		}
	}
	if !hasConfig {
		args = append([]string{"--config", writeConfig(t, credentialsConfig)}, args...)
	}

	root := NewRootCommandWithDependencies(deps)
	root.SetIn(strings.NewReader(stdin))

	var stdout, stderr bytes.Buffer
	code := Execute(context.Background(), root, args, &stdout, &stderr)
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), code: code}
}

func writeSource(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// pythonSource returns 20 lines with a flag lookup of key on line 10.
func pythonSource(key string) string {
	var b strings.Builder
	for i := 1; i <= 20; i++ {
		if i == 10 {
			b.WriteString(`if client.get_value("` + key + `", False):` + "\n")
			continue
		}
		b.WriteString("pass\n")
	}
	return b.String()
}
