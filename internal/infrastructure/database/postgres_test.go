package database

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/sangkips/caja-api/internal/config"
	"github.com/sangkips/caja-api/internal/domain/entity"
	"github.com/sangkips/caja-api/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type memUsers struct {
	users map[string]*entity.User
}

func (m *memUsers) Create(ctx context.Context, user *entity.User) error {
	user.ID = uuid.New()
	m.users[strings.ToLower(user.Email)] = user
	return nil
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return m.users[strings.ToLower(email)], nil
}

func TestSeedAdmin(t *testing.T) {
	users := &memUsers{users: map[string]*entity.User{}}
	cfg := &config.AdminConfig{Email: "Admin@Caja.local", Password: "s3cret-pass"}

	require.NoError(t, SeedAdmin(context.Background(), users, cfg, zap.NewNop()))
	require.Len(t, users.users, 1)

	admin := users.users["admin@caja.local"]
	require.NotNil(t, admin)
	assert.Equal(t, entity.RoleAdmin, admin.Role)
	assert.Equal(t, "Administrador", admin.Name)
	assert.True(t, admin.Active)
	assert.True(t, utils.CheckPasswordHash("s3cret-pass", admin.Password))

	// A second run leaves the existing user alone.
	require.NoError(t, SeedAdmin(context.Background(), users, cfg, zap.NewNop()))
	assert.Len(t, users.users, 1)
}

func TestSeedAdmin_SkippedWithoutCredentials(t *testing.T) {
	users := &memUsers{users: map[string]*entity.User{}}

	require.NoError(t, SeedAdmin(context.Background(), users, &config.AdminConfig{Email: "a@b.c"}, zap.NewNop()))
	assert.Empty(t, users.users)
}

func TestGormLogLevel(t *testing.T) {
	assert.Equal(t, logger.Silent, gormLogLevel("silent"))
	assert.Equal(t, logger.Info, gormLogLevel("INFO"))
	assert.Equal(t, logger.Warn, gormLogLevel(""))
}
