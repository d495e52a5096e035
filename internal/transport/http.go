package transport

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	qrcode "github.com/skip2/go-qrcode"

	"cardroom/internal/config"
	"cardroom/internal/engine"
	"cardroom/internal/room"
	"cardroom/internal/roomerrors"
)

// HTTP implements the short-lived REST surface (spec.md §6): room creation,
// join-by-code lookup, the game catalog, and the room QR code. Everything
// with a live connection-to-the-room lifetime goes over the WebSocket
// surface instead. Grounded on
// platform/backend/cmd/server/server.go's setupRoutes CORS/route-group shape.
func NewHTTPEngine(cfg *config.Config, rooms *room.Registry, games *engine.Registry, ws *Server) *gin.Engine {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	corsConfig := cors.Config{
		AllowOriginFunc: func(origin string) bool {
			return ws.originAllowed(origin)
		},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization", "X-Requested-With", "Accept", "Origin"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           86400 * time.Second,
	}
	r.Use(cors.New(corsConfig))

	r.GET("/healthz", handleHealthz)
	r.POST("/rooms", handleCreateRoom(rooms))
	r.POST("/rooms/join", handleJoinByCode(rooms))
	r.POST("/rooms/request-join", handleRequestJoin(rooms))
	r.GET("/rooms/code/:roomCode", handleGetRoomByCode(rooms))
	r.GET("/rooms/:id/qr", handleRoomQR(rooms))
	r.GET("/games", handleListGames(games))
	r.GET("/games/:type/settings", handleGameSettings(games))
	r.GET("/ws", ws.HandleWebSocket)

	return r
}

func handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type createRoomRequest struct {
	Name        string `json:"name" binding:"required"`
	CreatorID   string `json:"creatorId" binding:"required"`
	CreatorName string `json:"creatorName" binding:"required"`
	IsPrivate   bool   `json:"isPrivate"`
	MaxPlayers  int    `json:"maxPlayers"`
}

func handleCreateRoom(rooms *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createRoomRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		maxPlayers := req.MaxPlayers
		if maxPlayers <= 0 {
			maxPlayers = 4
		}
		r, err := rooms.CreateRoom(req.Name, req.CreatorID, req.CreatorName, req.IsPrivate, maxPlayers)
		if err != nil {
			respondError(c, err)
			return
		}
		snap, _ := rooms.SnapshotByID(r.ID)
		c.JSON(http.StatusCreated, snap)
	}
}

type joinByCodeRequest struct {
	Code     string `json:"code" binding:"required"`
	UserID   string `json:"userId" binding:"required"`
	UserName string `json:"userName" binding:"required"`
}

func handleJoinByCode(rooms *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req joinByCodeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		r, ok := rooms.GetRoomByCode(req.Code)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		snap, err := rooms.JoinRoom(r.ID, req.UserID, req.UserName, false)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, snap)
	}
}

type requestJoinRequest struct {
	Code          string `json:"code" binding:"required"`
	RequesterID   string `json:"requesterId" binding:"required"`
	RequesterName string `json:"requesterName" binding:"required"`
}

func handleRequestJoin(rooms *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req requestJoinRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if err := rooms.RequestJoin(req.Code, req.RequesterID, req.RequesterName); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"status": "pending"})
	}
}

func handleGetRoomByCode(rooms *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := rooms.GetRoomByCode(c.Param("roomCode"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		snap, _ := rooms.SnapshotByID(r.ID)
		c.JSON(http.StatusOK, snap)
	}
}

func handleRoomQR(rooms *room.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		r, ok := rooms.GetRoomByID(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "room not found"})
			return
		}
		png, err := qrcode.Encode(r.Code, qrcode.Medium, 256)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render qr code"})
			return
		}
		c.Data(http.StatusOK, "image/png", png)
	}
}

func handleListGames(games *engine.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, games.ListModules())
	}
}

func handleGameSettings(games *engine.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		module, ok := games.Module(c.Param("type"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "unknown game type"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"definitions": module.SettingsDefinitions(),
			"defaults":    module.DefaultSettings(),
		})
	}
}

func respondError(c *gin.Context, err error) {
	if re, ok := roomerrors.As(err); ok {
		body := gin.H{"error": re.Message}
		if re.Code != "" {
			body["code"] = re.Code
		}
		c.JSON(re.Kind.HTTPStatus(), body)
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
