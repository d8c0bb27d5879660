package api

import (
	_ "embed"
	"net/http"

	"github.com/labstack/echo/v4"
)

//go:embed openapi.yaml
var openapiSpec []byte

// Spec serves the OpenAPI description of this service.
// (GET /openapi.yaml)
func (s *Server) Spec(c echo.Context) error {
	return c.Blob(http.StatusOK, "application/yaml", openapiSpec)
}

// Docs serves a Swagger UI page pointed at the embedded spec. The page pulls
// the official CDN-hosted assets so no static files need to be checked in.
// (GET /docs)
func (s *Server) Docs(c echo.Context) error {
	return c.HTML(http.StatusOK, swaggerHTML)
}

const swaggerHTML = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="UTF-8" />
  <title>Snakemon API</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist/swagger-ui.css" />
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist/swagger-ui-bundle.js"></script>
  <script>
  window.onload = function() {
    SwaggerUIBundle({
      url: "/openapi.yaml",
      dom_id: '#swagger-ui',
      presets: [SwaggerUIBundle.presets.apis],
      layout: "BaseLayout"
    });
  };
  </script>
</body>
</html>`
