package seed_test

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coursereg/registration-system/internal/core/domain"
	"github.com/coursereg/registration-system/internal/core/service"
	"github.com/coursereg/registration-system/internal/infrastructure/db/sqlite"
	"github.com/coursereg/registration-system/internal/seed"
)

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := seed.Parse(strings.NewReader("courses:\n  - code: X1\n    capacity: 3\n"))
	require.Error(t, err)
}

func TestParse_Empty(t *testing.T) {
	f, err := seed.Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Users)
	assert.Empty(t, f.Courses)
}

func TestSeeder_ApplyIsIdempotent(t *testing.T) {
	ctx := context.Background()
	log := zerolog.Nop()

	db, err := sqlite.Open(ctx, filepath.Join(t.TempDir(), "seed.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	userRepo := sqlite.NewUserRepository(db)
	courseRepo := sqlite.NewCourseRepository(db)
	courses := service.NewCourseService(courseRepo, sqlite.NewRegistrationRepository(db), nil, log)
	seeder := seed.NewSeeder(service.NewUserService(userRepo, log), courses, log)

	f, err := seed.LoadFile(filepath.Join("testdata", "catalog.yaml"))
	require.NoError(t, err)
	require.Len(t, f.Courses, 2)

	res, err := seeder.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, seed.Result{UsersCreated: 1, CoursesCreated: 2}, res)

	res, err = seeder.Apply(ctx, f)
	require.NoError(t, err)
	assert.Equal(t, seed.Result{UsersSkipped: 1, CoursesSkipped: 2}, res)

	admin, err := userRepo.FindByEmail(ctx, "registrar@example.edu")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, admin.Role)

	cs101, err := courseRepo.FindByCode(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, 30, cs101.MaxStudents)

	sessions, err := courseRepo.Sessions(ctx, cs101.ID)
	require.NoError(t, err)
	assert.Len(t, sessions, 2)
}
