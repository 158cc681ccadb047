package web

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fsandov/klipper-gotify/pkg/gcode"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (app *GinApp) setupRoutes() {
	app.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	printer := app.engine.Group("/printer/gcode")
	printer.POST("/script", app.runScript)
	printer.GET("/help", app.commandHelp)

	app.engine.GET("/server/gcode_store", app.gcodeStore)

	if app.ginConfig.EnableMetrics {
		app.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
	if app.ginConfig.EnablePprof {
		pprof.RouteRegister(&app.engine.RouterGroup, "/debug/pprof")
	}
}

type scriptRequest struct {
	Script string `json:"script" form:"script"`
}

func (app *GinApp) runScript(c *gin.Context) {
	var req scriptRequest
	req.Script = c.Query("script")
	if req.Script == "" && c.Request.ContentLength != 0 {
		if err := c.ShouldBind(&req); err != nil {
			c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, err.Error()))
			return
		}
	}
	if req.Script == "" {
		c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "No data for argument: script"))
		return
	}

	if err := app.dispatcher.Run(c.Request.Context(), req.Script); err != nil {
		status := http.StatusBadRequest
		var gerr *gcode.Error
		if errors.As(err, &gerr) && gerr.Kind == gcode.KindTransport {
			status = http.StatusBadGateway
		}
		c.JSON(status, errorBody(status, err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": "ok"})
}

func (app *GinApp) commandHelp(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"result": app.dispatcher.Commands()})
}

func (app *GinApp) gcodeStore(c *gin.Context) {
	count := 100
	if raw := c.Query("count"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			c.JSON(http.StatusBadRequest, errorBody(http.StatusBadRequest, "invalid count"))
			return
		}
		count = n
	}
	c.JSON(http.StatusOK, gin.H{"result": gin.H{"gcode_store": app.store.Last(count)}})
}

func errorBody(code int, msg string) gin.H {
	return gin.H{"error": gin.H{"code": code, "message": msg}}
}
