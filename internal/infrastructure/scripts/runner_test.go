package scripts

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/verticore/backend/internal/domain/vertical"
)

func testContext() vertical.ScriptContext {
	return vertical.ScriptContext{
		TenantID:       uuid.New(),
		OrganizationID: uuid.New(),
	}
}

func TestRunUnknownScriptIsSkipped(t *testing.T) {
	runner := NewGormScriptRunner(nil, zap.NewNop())

	err := runner.Run(context.Background(), "script_from_the_future", testContext())

	assert.NoError(t, err)
}

func TestRunDispatchesToRegisteredScript(t *testing.T) {
	runner := NewGormScriptRunner(nil, zap.NewNop())

	var gotScript vertical.ScriptContext
	runner.RegisterScript("custom_script", func(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
		gotScript = sctx
		return nil
	})

	sctx := testContext()
	err := runner.Run(context.Background(), "custom_script", sctx)

	require.NoError(t, err)
	assert.Equal(t, sctx.TenantID, gotScript.TenantID)
}

func TestRunPropagatesScriptError(t *testing.T) {
	runner := NewGormScriptRunner(nil, zap.NewNop())
	runner.RegisterScript("failing", func(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
		return errors.New("tables table missing")
	})

	err := runner.Run(context.Background(), "failing", testContext())

	assert.EqualError(t, err, "tables table missing")
}

func TestRunCleanupWithoutRegistrationIsNoop(t *testing.T) {
	runner := NewGormScriptRunner(nil, zap.NewNop())

	err := runner.RunCleanup(context.Background(), vertical.Services, testContext())

	assert.NoError(t, err)
}

func TestRunCleanupDispatchesByVertical(t *testing.T) {
	runner := NewGormScriptRunner(nil, zap.NewNop())

	called := false
	runner.RegisterCleanup(vertical.Manufacturing, func(ctx context.Context, db *gorm.DB, sctx vertical.ScriptContext) error {
		called = true
		return nil
	})

	err := runner.RunCleanup(context.Background(), vertical.Manufacturing, testContext())

	require.NoError(t, err)
	assert.True(t, called)
}

func TestDefaultRegistryCoversCatalogScripts(t *testing.T) {
	runner := NewGormScriptRunner(nil, zap.NewNop())

	for _, name := range []string{
		"ensure_default_settings",
		"create_retail_catalogs",
		"setup_pos_stations",
		"initialize_barcode_system",
		"create_restaurant_tables",
		"create_kitchen_stations",
		"convert_to_menu_items",
		"setup_project_templates",
		"setup_bom_system",
		"initialize_work_orders",
	} {
		_, ok := runner.scripts[name]
		assert.True(t, ok, name)
	}
}
