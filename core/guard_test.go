package core

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequireSelf(t *testing.T) {
	p := Principal{AcademicID: "RA0001"}
	assert.NoError(t, RequireSelf(p, "RA0001", "actualizar datos de otro estudiante"))

	err := RequireSelf(p, "RA0002", "actualizar datos de otro estudiante")
	var appErr *AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusForbidden, appErr.StatusCode())
	assert.Equal(t, CodeInsufficientPermissions, appErr.Code)
	assert.Equal(t, "actualizar datos de otro estudiante", appErr.Details["required_action"])
}

func TestRequireSelfRejectsEmptyIdentities(t *testing.T) {
	assert.Error(t, RequireSelf(Principal{}, "", "x"))
	assert.Error(t, RequireSelf(Principal{AcademicID: "RA0001"}, "", "x"))
}
