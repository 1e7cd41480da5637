package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shardrun/internal/runerrors"
)

func TestScanner_Scan(t *testing.T) {
	tmpDir := t.TempDir()

	testFiles := []string{
		"app/src/androidTest/java/com/example/LoginTest.java",
		"app/src/androidTest/kotlin/com/example/CheckoutTest.kt",
		"tests/Unit/UserTest.php",
		"vendor/some/LibTest.php",
		"build/generated/GeneratedTest.java",
		".gradle/CachedTest.java",
		"app/src/main/java/com/example/Login.java",
	}
	for _, file := range testFiles {
		fullPath := filepath.Join(tmpDir, file)
		require.NoError(t, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(t, os.WriteFile(fullPath, []byte("test"), 0o644))
	}

	scanner := NewScanner([]string{"vendor", "build"}, nil)

	t.Run("scans test files correctly", func(t *testing.T) {
		results, err := scanner.Scan(tmpDir)
		require.NoError(t, err)
		assert.Equal(t, []string{
			filepath.Join(tmpDir, "app/src/androidTest/java/com/example/LoginTest.java"),
			filepath.Join(tmpDir, "app/src/androidTest/kotlin/com/example/CheckoutTest.kt"),
			filepath.Join(tmpDir, "tests/Unit/UserTest.php"),
		}, results)
	})

	t.Run("custom suffixes", func(t *testing.T) {
		results, err := NewScanner(nil, []string{"Test.kt"}).Scan(tmpDir)
		require.NoError(t, err)
		assert.Len(t, results, 1)
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		_, err := scanner.Scan("/non/existent/path")
		var invalid *runerrors.ErrInvalidArgument
		assert.True(t, errors.As(err, &invalid))
	})

	t.Run("returns error for file instead of directory", func(t *testing.T) {
		testFile := filepath.Join(tmpDir, "testfile.txt")
		require.NoError(t, os.WriteFile(testFile, []byte("test"), 0o644))
		_, err := scanner.Scan(testFile)
		assert.Error(t, err)
	})
}
