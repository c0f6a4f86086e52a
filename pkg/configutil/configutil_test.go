package configutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Retries  int    `json:"retries"`
}

func writeFile(t testing.TB, path, contents string) {
	err := os.WriteFile(path, []byte(contents), 0600)
	if err != nil {
		t.Fatal(err)
	}
}

func TestReadConfigMergesLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.json5"), `{
		// comments are allowed
		username: "alice",
		password: "default",
		retries: 5,
	}`)
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{ password: "secret" }`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Username: "alice", Password: "secret", Retries: 5}, config)
}

func TestReadConfigOnlyLocal(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "app.local.json5"), `{ username: "bob" }`)

	config, err := ReadConfig[testConfig](filepath.Join(dir, "app.json5"))
	require.NoError(t, err)
	require.Equal(t, "bob", config.Username)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig[testConfig](filepath.Join(t.TempDir(), "app.json5"))
	require.True(t, os.IsNotExist(err))
}

func TestReadRecursively(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0777))
	writeFile(t, filepath.Join(root, "found.json5"), `{ username: "carol" }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	config, err := ReadRecursively[testConfig]("found.json5")
	require.NoError(t, err)
	require.Equal(t, "carol", config.Username)
}

func TestLocateFindsLocalOnly(t *testing.T) {
	root := t.TempDir()
	nested := filepath.Join(root, "x")
	require.NoError(t, os.MkdirAll(nested, 0777))
	writeFile(t, filepath.Join(root, "only.local.json5"), `{ retries: 2 }`)

	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(nested))
	defer os.Chdir(wd)

	path, err := Locate("only.json5")
	require.NoError(t, err)
	require.Equal(t, "only.json5", filepath.Base(path))

	config, err := ReadRecursively[testConfig]("only.json5")
	require.NoError(t, err)
	require.Equal(t, 2, config.Retries)
}

func TestReadConfigMalformed(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "bad.json5"), `{ username: `)

	_, err := ReadConfig[testConfig](filepath.Join(dir, "bad.json5"))
	require.Error(t, err)
	require.False(t, os.IsNotExist(err))
}
