package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"emergencyhub/location"
)

func (s *Server) handleCurrentLocation(c *gin.Context) {
	var params location.GeolocateParams
	params.ConsiderIP = true
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&params); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request body"})
			return
		}
	}

	coords, err := s.resolver.Geolocate(c.Request.Context(), params)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": coords})
}

func (s *Server) handleLocationName(c *gin.Context) {
	lat, lng, ok := parseCoordinates(c)
	if !ok {
		return
	}

	addr, err := s.resolver.ReverseGeocode(c.Request.Context(), lat, lng)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": addr})
}

func (s *Server) handleNearby(c *gin.Context) {
	lat, lng, ok := parseCoordinates(c)
	if !ok {
		return
	}
	emergencyType := location.EmergencyType(c.Query("EmergencyType"))

	places, err := s.places.NearbyServices(c.Request.Context(), lat, lng, emergencyType)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if places == nil {
		places = []location.Place{}
	}

	c.JSON(http.StatusOK, gin.H{"results": places})
}

func (s *Server) handlePlaceDetails(c *gin.Context) {
	placeID := c.Query("placeId")
	if placeID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "placeId is required"})
		return
	}

	details, err := s.places.PlaceDetails(c.Request.Context(), placeID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"result": details})
}

func (s *Server) handleDistanceDuration(c *gin.Context) {
	origins := c.Query("origins")
	destinations := c.Query("destinations")
	if origins == "" || destinations == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required parameters",
			"message": "Both origins and destinations are required",
		})
		return
	}

	dist, err := s.routes.DistanceDuration(c.Request.Context(), origins, destinations)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "data": dist})
}

func (s *Server) handleRoute(c *gin.Context) {
	origin := c.Query("origin")
	destination := c.Query("destination")
	if origin == "" || destination == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required parameters",
			"message": "Both origin and destination are required",
		})
		return
	}

	route, err := s.routes.Route(c.Request.Context(), origin, destination)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"distance":      route.Distance,
		"duration":      route.Duration,
		"polyline":      route.Polyline,
		"start_address": route.StartAddress,
		"end_address":   route.EndAddress,
		"steps":         route.Steps,
	})
}

// handleServiceDetailsWithDistance combines a details lookup with a distance
// computation from the caller's origin so clients need a single round trip.
func (s *Server) handleServiceDetailsWithDistance(c *gin.Context) {
	placeID := c.Query("placeId")
	origin := c.Query("origin")
	if placeID == "" || origin == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Missing required parameters",
			"message": "Both placeId and origin are required",
		})
		return
	}

	details, err := s.places.PlaceDetails(c.Request.Context(), placeID)
	if err != nil {
		s.writeError(c, err)
		return
	}

	destination := formatFloat(details.Latitude) + "," + formatFloat(details.Longitude)
	dist, err := s.routes.DistanceDuration(c.Request.Context(), origin, destination)
	if err != nil {
		s.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"placeDetails": details,
		"distanceInfo": gin.H{
			"distance": dist.Distance,
			"duration": dist.Duration,
			"status":   dist.Status,
		},
	})
}

func parseCoordinates(c *gin.Context) (float64, float64, bool) {
	latStr := c.Query("latitude")
	lngStr := c.Query("longitude")
	if latStr == "" || lngStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Latitude and longitude are required"})
		return 0, 0, false
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid latitude"})
		return 0, 0, false
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid longitude"})
		return 0, 0, false
	}

	return lat, lng, true
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
