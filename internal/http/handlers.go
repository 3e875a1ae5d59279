package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/fyrsmithlabs/beamd/internal/document"
	"github.com/fyrsmithlabs/beamd/internal/tenant"
)

// TokenRequest is the body of POST /token.
type TokenRequest struct {
	TenantID     string `json:"tenant_id"`
	TenantUserID string `json:"tenant_user_id"`
}

// TokenResponse carries a minted bearer token.
type TokenResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleToken(c echo.Context) error {
	var req TokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	scope := tenant.Scope{TenantID: req.TenantID, TenantUserID: req.TenantUserID}
	if err := scope.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "tenant_id and tenant_user_id are required")
	}

	minted, err := s.issuer.Issue(scope)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, TokenResponse{Token: minted})
}

// IntegrationInfo is one entry of GET /integrations.
type IntegrationInfo struct {
	Slug    string `json:"slug"`
	Name    string `json:"name"`
	LogoURL string `json:"logo_url,omitempty"`
}

func (s *Server) handleListIntegrations(c echo.Context) error {
	slugs := s.registry.Slugs()
	out := make([]IntegrationInfo, 0, len(slugs))
	for _, slug := range slugs {
		def, err := s.registry.Get(slug)
		if err != nil {
			continue
		}
		out = append(out, IntegrationInfo{
			Slug:    slug,
			Name:    def.Name(),
			LogoURL: def.LogoURL(),
		})
	}
	return c.JSON(http.StatusOK, out)
}

// CreateConnectionRequest is the body of POST /connections.
type CreateConnectionRequest struct {
	Integration string                 `json:"integration"`
	Config      map[string]interface{} `json:"config"`
}

func (s *Server) handleCreateConnection(c echo.Context) error {
	var req CreateConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Integration == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "integration is required")
	}

	conn, err := s.connections.Create(c.Request().Context(), req.Integration, req.Config)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, conn)
}

func (s *Server) handleListConnections(c echo.Context) error {
	conns, err := s.connections.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conns)
}

func (s *Server) handleGetConnection(c echo.Context) error {
	conn, err := s.connections.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conn)
}

// UpdateConnectionRequest is the body of PUT /connections/:id.
type UpdateConnectionRequest struct {
	Config map[string]interface{} `json:"config"`
}

func (s *Server) handleUpdateConnection(c echo.Context) error {
	var req UpdateConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	conn, err := s.connections.UpdateConfig(c.Request().Context(), c.Param("id"), req.Config)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conn)
}

func (s *Server) handleDeleteConnection(c echo.Context) error {
	if err := s.connections.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleConnectionAuthURL(c echo.Context) error {
	authURL, err := s.connections.AuthURL(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]string{"auth_url": authURL})
}

// CompleteConnectionRequest is the body of POST /connections/:id/complete.
type CompleteConnectionRequest struct {
	Code string `json:"code"`
}

func (s *Server) handleCompleteConnection(c echo.Context) error {
	var req CompleteConnectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if req.Code == "" {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, "code is required")
	}

	conn, err := s.connections.CompleteOAuth2(c.Request().Context(), c.Param("id"), req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conn)
}

func (s *Server) handleDisconnectConnection(c echo.Context) error {
	conn, err := s.connections.Disconnect(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, conn)
}

// SyncResponse summarizes one connection sync.
type SyncResponse struct {
	Documents int `json:"documents"`
	Skipped   int `json:"skipped"`
}

// handleSyncConnection pulls every document visible to the connection and
// ingests each through the pipeline.
func (s *Server) handleSyncConnection(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	result, err := s.connections.Pull(ctx, id)
	if err != nil {
		return httpError(err)
	}

	for _, content := range result.Documents {
		if _, err := s.documents.Create(ctx, document.CreateInput{
			Content:      content,
			ConnectionID: id,
		}); err != nil {
			return httpError(err)
		}
	}

	return c.JSON(http.StatusOK, SyncResponse{
		Documents: len(result.Documents),
		Skipped:   len(result.Skipped),
	})
}

// CreateDocumentRequest is the body of POST /documents.
type CreateDocumentRequest struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

func (s *Server) handleCreateDocument(c echo.Context) error {
	var req CreateDocumentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	doc, err := s.documents.Create(c.Request().Context(), document.CreateInput{
		Name:    req.Name,
		Content: req.Content,
	})
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, doc)
}

func (s *Server) handleListDocuments(c echo.Context) error {
	docs, err := s.documents.List(c.Request().Context())
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, docs)
}

func (s *Server) handleGetDocument(c echo.Context) error {
	doc, err := s.documents.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, doc)
}

func (s *Server) handleDeleteDocument(c echo.Context) error {
	if err := s.documents.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// QueryRequest is the body of POST /documents/query.
type QueryRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

func (s *Server) handleQueryDocuments(c echo.Context) error {
	var req QueryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	matches, err := s.documents.Query(c.Request().Context(), req.Query, req.Limit)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, matches)
}

func (s *Server) handleListChunks(c echo.Context) error {
	chunks, err := s.documents.ListChunks(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chunks)
}

// ChunkRequest is the body of chunk create and update calls.
type ChunkRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleCreateChunk(c echo.Context) error {
	var req ChunkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	chunk, err := s.documents.CreateChunk(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, chunk)
}

func (s *Server) handleGetChunk(c echo.Context) error {
	chunk, err := s.documents.GetChunk(c.Request().Context(), c.Param("id"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chunk)
}

func (s *Server) handleUpdateChunk(c echo.Context) error {
	var req ChunkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	chunk, err := s.documents.UpdateChunk(c.Request().Context(), c.Param("id"), req.Content)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, chunk)
}

func (s *Server) handleDeleteChunk(c echo.Context) error {
	if err := s.documents.DeleteChunk(c.Request().Context(), c.Param("id")); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
