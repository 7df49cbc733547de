package rest_api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	photarium "github.com/bleeckerj/nfl-photarium-sub000"
	"github.com/bleeckerj/nfl-photarium-sub000/cache"
	"github.com/bleeckerj/nfl-photarium-sub000/vector"
)

// ImagesRestApi holds the services the image & search endpoints delegate to.
type ImagesRestApi struct {
	Cache   *cache.Cache
	Vectors *vector.Store
}

func NewImagesRestApi(c *cache.Cache, v *vector.Store) *ImagesRestApi {
	return &ImagesRestApi{
		Cache:   c,
		Vectors: v,
	}
}

// GetImages responds with the cached image listing, optionally narrowed by a
// CEL expression in the "filter" query parameter, e.g.
// filter=img.folder == "portraits" && "bw" in img.tags.
func (ira *ImagesRestApi) GetImages(c *gin.Context) {
	images, err := ira.Cache.Get(c.Request.Context())
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "fetching image listing failed"})
		return
	}

	if expr := c.Query("filter"); expr != "" {
		filter, err := cache.NewFilter(expr)
		if err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		images, err = filter.Apply(images)
		if err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
	}

	c.IndentedJSON(http.StatusOK, images)
}

// GetImageByID responds with one image record by id.
func (ira *ImagesRestApi) GetImageByID(c *gin.Context) {
	rec, err := ira.Cache.Lookup(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "fetching image listing failed"})
		return
	}
	if rec == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "image not found"})
		return
	}
	c.IndentedJSON(http.StatusOK, rec)
}

// DeleteImage removes an image from the cached listing and drops its vectors.
func (ira *ImagesRestApi) DeleteImage(c *gin.Context) {
	ira.Cache.Remove(c.Request.Context(), c.Param("id"))
	c.Status(http.StatusNoContent)
}

// GetStatuses reports per-image vector presence for a comma separated "ids"
// query parameter.
func (ira *ImagesRestApi) GetStatuses(c *gin.Context) {
	raw := c.Query("ids")
	if raw == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "ids query parameter is required"})
		return
	}
	ids := make([]string, 0)
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	statuses, err := ira.Vectors.FetchStatuses(c.Request.Context(), ids)
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "fetching vector statuses failed"})
		return
	}
	c.IndentedJSON(http.StatusOK, statuses)
}

// StoreVectors writes the submitted vector fields of one image. Fields left
// out of the payload are preserved.
func (ira *ImagesRestApi) StoreVectors(c *gin.Context) {
	var data vector.Data
	if err := c.ShouldBindJSON(&data); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	if err := ira.Vectors.StoreVectors(c.Request.Context(), c.Param("id"), data); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// GetVectors responds with the stored index record of one image.
func (ira *ImagesRestApi) GetVectors(c *gin.Context) {
	data, err := ira.Vectors.GetVectors(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "fetching vectors failed"})
		return
	}
	if data == nil {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "no vectors stored for image"})
		return
	}
	c.IndentedJSON(http.StatusOK, data)
}

// DeleteVectors drops the stored index record of one image without touching
// the cached listing entry.
func (ira *ImagesRestApi) DeleteVectors(c *gin.Context) {
	if err := ira.Vectors.DeleteVectors(c.Request.Context(), c.Param("id")); err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "deleting vectors failed"})
		return
	}
	c.Status(http.StatusNoContent)
}

// searchRequest is the body of POST /search. Either a raw vector or an image
// id to borrow the vector from must be given.
type searchRequest struct {
	Space   string    `json:"space"`
	Vector  []float32 `json:"vector,omitempty"`
	ImageID string    `json:"imageId,omitempty"`
	Limit   int       `json:"limit,omitempty"`
	Folder  string    `json:"folder,omitempty"`
}

// SearchSimilar runs a nearest-neighbor search in the requested embedding
// space.
func (ira *ImagesRestApi) SearchSimilar(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	space, ok := parseSpace(req.Space)
	if !ok {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "unknown embedding space " + req.Space})
		return
	}

	queryVector := req.Vector
	if len(queryVector) == 0 && req.ImageID != "" {
		data, err := ira.Vectors.GetVectors(c.Request.Context(), req.ImageID)
		if err != nil {
			c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "fetching vectors failed"})
			return
		}
		if data != nil {
			if space == photarium.SpaceSemantic {
				queryVector = data.Semantic
			} else {
				queryVector = data.Color
			}
		}
	}
	if len(queryVector) == 0 {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "a query vector or an imageId with stored vectors is required"})
		return
	}

	filter := ""
	if req.Folder != "" {
		filter = "@folder:{" + req.Folder + "}"
	}
	results, err := ira.Vectors.SearchByVector(c.Request.Context(), space, queryVector, req.Limit, filter)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, results)
}

// SearchText embeds the "q" query parameter and searches the semantic space.
func (ira *ImagesRestApi) SearchText(c *gin.Context) {
	q := c.Query("q")
	if q == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "q query parameter is required"})
		return
	}
	results, err := ira.Vectors.SearchByText(c.Request.Context(), q, limitParam(c))
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "text search failed"})
		return
	}
	c.IndentedJSON(http.StatusOK, results)
}

// SearchColor searches the color histogram space for images near the "hex"
// query parameter, e.g. hex=%23ff8800.
func (ira *ImagesRestApi) SearchColor(c *gin.Context) {
	hex := c.Query("hex")
	if hex == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "hex query parameter is required"})
		return
	}
	results, err := ira.Vectors.SearchByHexColor(c.Request.Context(), hex, limitParam(c))
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, results)
}

// SearchOpposite runs an opposite search. With "hex" given it works on the
// color space via the named color transform; with "id" it reads the stored
// vector of that image in the requested space.
func (ira *ImagesRestApi) SearchOpposite(c *gin.Context) {
	strategy := vector.Strategy(c.DefaultQuery("strategy", string(vector.StrategyNegation)))
	limit := limitParam(c)

	if hex := c.Query("hex"); hex != "" {
		results, err := ira.Vectors.SearchOppositeColorHex(c.Request.Context(), hex, limit, strategy)
		if err != nil {
			c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
			return
		}
		c.IndentedJSON(http.StatusOK, results)
		return
	}

	id := c.Query("id")
	if id == "" {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "an id or hex query parameter is required"})
		return
	}
	space, ok := parseSpace(c.DefaultQuery("space", "semantic"))
	if !ok {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": "unknown embedding space"})
		return
	}
	data, err := ira.Vectors.GetVectors(c.Request.Context(), id)
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "fetching vectors failed"})
		return
	}
	var queryVector []float32
	if data != nil {
		if space == photarium.SpaceSemantic {
			queryVector = data.Semantic
		} else {
			queryVector = data.Color
		}
	}
	if len(queryVector) == 0 {
		c.IndentedJSON(http.StatusNotFound, gin.H{"message": "no stored vector for image in requested space"})
		return
	}

	results, err := ira.Vectors.SearchOpposite(c.Request.Context(), space, queryVector, limit, strategy, id)
	if err != nil {
		c.IndentedJSON(http.StatusBadRequest, gin.H{"message": err.Error()})
		return
	}
	c.IndentedJSON(http.StatusOK, results)
}

// RefreshCache re-pulls the image listing from the origin. With force=true
// the refresh runs even when the cached listing is still fresh.
func (ira *ImagesRestApi) RefreshCache(c *gin.Context) {
	force := c.Query("force") == "true"
	images, err := ira.Cache.Refresh(c.Request.Context(), force)
	if err != nil {
		c.IndentedJSON(http.StatusBadGateway, gin.H{"message": "cache refresh failed"})
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"count": len(images)})
}

// parseSpace accepts both the short space names used by callers and the raw
// index field names.
func parseSpace(s string) (photarium.EmbeddingSpace, bool) {
	switch s {
	case "semantic", string(photarium.SpaceSemantic), "":
		return photarium.SpaceSemantic, true
	case "color", string(photarium.SpaceColor):
		return photarium.SpaceColor, true
	}
	return "", false
}

func limitParam(c *gin.Context) int {
	n, err := strconv.Atoi(c.DefaultQuery("limit", "0"))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
