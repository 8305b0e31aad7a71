//go:build integration

package integration

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"go-api-template/internal/model"
)

func TestRegisterLoginAndMe(t *testing.T) {
	server := newServer(t, serverConfig{})
	email := uniqueEmail()

	registered := registerUser(t, server, email)
	require.NotEmpty(t, registered.Token)

	resp, body := call(t, server, http.MethodPost, apiPrefix+"/auth/register",
		map[string]string{"email": email, "password": "Integr4tion"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "This email address is already in use", body.Message)

	resp, body = call(t, server, http.MethodPost, apiPrefix+"/auth/login",
		map[string]string{"email": email, "password": "Integr4tion"}, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var login model.AuthResult
	require.NoError(t, json.Unmarshal(body.Data, &login))

	resp, body = call(t, server, http.MethodGet, apiPrefix+"/users/me", nil, bearer(login.Token))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var identity model.Identity
	require.NoError(t, json.Unmarshal(body.Data, &identity))
	require.Equal(t, registered.User.ID, identity.ID)
	require.Equal(t, model.RoleUser, identity.Role)

	resp, body = call(t, server, http.MethodGet, apiPrefix+"/users/admin/dashboard", nil, bearer(login.Token))
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	require.Equal(t, "You do not have permission for this action", body.Message)
}

func TestReadinessReportsDatabase(t *testing.T) {
	server := newServer(t, serverConfig{})

	resp, _ := call(t, server, http.MethodGet, apiPrefix+"/health/ready", nil, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}
