package controllers

import (
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
)

// rootHandler handles requests to the root path
func rootHandler(c *gin.Context) {
	c.String(http.StatusOK, "SmartDentist API")
}

func healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// SetupRootRoute sets up routes for the application
func SetupRootRoute(router *gin.Engine) {
	router.GET("/", rootHandler)
	router.GET("/healthz", healthHandler)
}

// filesOnly hides directory listings of the media tree.
type filesOnly struct {
	fs http.FileSystem
}

func (f filesOnly) Open(name string) (http.File, error) {
	file, err := f.fs.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	if info.IsDir() {
		file.Close()
		return nil, os.ErrNotExist
	}
	return file, nil
}

// SetupMediaRoute serves uploaded archives and catalog images read-only
func SetupMediaRoute(router *gin.Engine, mediaURL string, fs afero.Fs) {
	router.StaticFS(mediaURL, filesOnly{fs: afero.NewHttpFs(fs).Dir("/")})
}
