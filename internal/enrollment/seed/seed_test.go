package seed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "courses.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path uses defaults", func(t *testing.T) {
		courses, err := Load("")
		require.NoError(t, err)
		assert.Len(t, courses, 5)
		for _, c := range courses {
			assert.Equal(t, DefaultCapacity, c.Capacity)
			assert.Zero(t, c.Occupied)
		}
	})

	t.Run("file catalog drops occupancy", func(t *testing.T) {
		path := writeSeed(t, `[{"course_key":"X1","course_name":"Seminar","credits":1,"department":"Arts","max_students":2,"current_students":2}]`)
		courses, err := Load(path)
		require.NoError(t, err)
		require.Len(t, courses, 1)
		assert.Equal(t, "X1", courses[0].Key)
		assert.Equal(t, 2, courses[0].Capacity)
		assert.Zero(t, courses[0].Occupied)
	})

	t.Run("invalid catalogs are rejected", func(t *testing.T) {
		for name, body := range map[string]string{
			"malformed":     `{`,
			"empty":         `[]`,
			"zero capacity": `[{"course_key":"X1","max_students":0}]`,
			"missing key":   `[{"max_students":3}]`,
			"duplicate key": `[{"course_key":"X1","max_students":1},{"course_key":"X1","max_students":1}]`,
		} {
			t.Run(name, func(t *testing.T) {
				_, err := Load(writeSeed(t, body))
				assert.Error(t, err)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
		assert.Error(t, err)
	})
}
