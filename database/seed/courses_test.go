package seed

import (
	"testing"

	"teemarker/database/repository/memory"
	"teemarker/services/adapters"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCoursesIsIdempotent(t *testing.T) {
	repo := memory.NewCourses()

	created, err := Courses(t.Context(), repo)
	require.NoError(t, err)
	assert.Equal(t, len(SampleCourses()), created)

	created, err = Courses(t.Context(), repo)
	require.NoError(t, err)
	assert.Zero(t, created)

	all, err := repo.List(t.Context())
	require.NoError(t, err)
	assert.Len(t, all, len(SampleCourses()))
}

func TestSampleCoursesUseRegisteredPlatforms(t *testing.T) {
	registry := adapters.NewDefaultRegistry(adapters.Deps{}, adapters.Settings{})
	for _, c := range SampleCourses() {
		assert.True(t, registry.IsPlatformSupported(c.Platform), c.Name)
	}
}
