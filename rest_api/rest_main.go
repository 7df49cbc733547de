// Package contains helper functions for quickly and easily setting up the
// photarium REST API.
package rest_api

import (
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	jwtverifier "github.com/okta/okta-jwt-verifier-golang"
)

// Rest API package's "main" function creates the HTTP router, uses the
// registered (REST) methods to make endpoint handlers out of them and issues
// a "router run" blocking until the HTTP REST Api is signaled to stop, via OS
// interrupts like CTRL-C and such.
func Main(api *ImagesRestApi) {

	// Simple closure to for header token verification.
	verifyHeaderToken := func(realHandler func(c *gin.Context)) func(c *gin.Context) {
		return func(c *gin.Context) {
			if verify(c) {
				realHandler(c)
			}
		}
	}

	router := gin.Default()
	router.Use(requestID())

	// Register the images' & search REST methods.
	RegisterMethod(GET, "/images", api.GetImages)
	RegisterMethod(GET_ONE, "/images/:id", api.GetImageByID)
	RegisterMethod(DELETE, "/images/:id", api.DeleteImage)
	RegisterMethod(GET, "/images/status", api.GetStatuses)
	RegisterMethod(POST, "/images/:id/vectors", api.StoreVectors)
	RegisterMethod(GET, "/images/:id/vectors", api.GetVectors)
	RegisterMethod(DELETE, "/images/:id/vectors", api.DeleteVectors)
	RegisterMethod(POST, "/search", api.SearchSimilar)
	RegisterMethod(GET, "/search/text", api.SearchText)
	RegisterMethod(GET, "/search/color", api.SearchColor)
	RegisterMethod(GET, "/search/opposite", api.SearchOpposite)
	RegisterMethod(POST, "/cache/refresh", api.RefreshCache)

	v1 := router.Group("/api/v1")
	{
		restMethods := RestMethods()
		for _, rm := range restMethods {
			switch rm.Verb {
			case GET:
				fallthrough
			case GET_ONE:
				v1.GET(rm.Path, verifyHeaderToken(rm.Handler))
			case DELETE:
				v1.DELETE(rm.Path, verifyHeaderToken(rm.Handler))
			case POST:
				v1.POST(rm.Path, verifyHeaderToken(rm.Handler))
			case PUT:
				v1.PUT(rm.Path, verifyHeaderToken(rm.Handler))
			case PATCH:
				v1.PATCH(rm.Path, verifyHeaderToken(rm.Handler))
			default:
				panic(fmt.Sprintf("HTTP verb %d not supported", rm.Verb))
			}
		}
	}

	router.Run("localhost:8080")
}

// requestID assigns each request a correlation id, echoed back in the
// response header so callers can quote it when reporting issues.
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Request.Header.Get("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestId", id)
		c.Writer.Header().Set("X-Request-Id", id)
		c.Next()
	}
}

var toValidate = map[string]string{
	"aud": "api://default",
	"cid": os.Getenv("OKTA_CLIENT_ID"),
}

// Verify the bearer token in header.
func verify(c *gin.Context) bool {
	status := true

	// Allow easy debugging on dev.
	if os.Getenv("PHOTARIUM_ENV") == "DEV" {
		return true
	}

	token := c.Request.Header.Get("Authorization")
	if strings.HasPrefix(token, "Bearer ") {
		token = strings.TrimPrefix(token, "Bearer ")

		// Allow easy QA, bypass Okta based OAuth2 token verification w/ simple token equality check.
		if os.Getenv("PHOTARIUM_ENV") == "QA" {
			devToken := os.Getenv("PHOTARIUM_QA_TOKEN")
			if token == devToken {
				return true
			}
		}

		verifierSetup := jwtverifier.JwtVerifier{
			Issuer:           "https://" + os.Getenv("OKTA_DOMAIN") + "/oauth2/default",
			ClaimsToValidate: toValidate,
		}
		verifier := verifierSetup.New()
		_, err := verifier.VerifyAccessToken(token)
		if err != nil {
			c.String(http.StatusForbidden, err.Error())
			status = false
		}
	} else {
		c.String(http.StatusUnauthorized, "Unauthorized")
		status = false
	}
	return status
}
