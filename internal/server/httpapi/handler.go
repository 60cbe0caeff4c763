package httpapi

import (
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/aikea/internal/bucket"
	"github.com/dmitrijs2005/aikea/internal/common"
	"github.com/gin-gonic/gin"
)

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "configured": s.gateway.IsConfigured()})
}

func (s *Server) listAll(c *gin.Context) {
	records, err := s.gateway.ListAll(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) findByID(c *gin.Context) {
	rec, err := s.gateway.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *Server) searchByExternalID(c *gin.Context) {
	records, err := s.gateway.SearchByExternalID(c.Request.Context(), c.Param("externalId"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) searchByPattern(c *gin.Context) {
	records, err := s.gateway.SearchByPattern(c.Request.Context(), c.Query("pattern"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) searchByTags(c *gin.Context) {
	records, err := s.gateway.SearchByTags(c.Request.Context(), c.Query("tag1"), c.Query("tag2"), c.Query("tag3"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func (s *Server) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	fh, err := c.FormFile("file")
	if err != nil {
		s.fail(c, fmt.Errorf("%w: multipart field \"file\" is required", common.ErrValidation))
		return
	}
	f, err := fh.Open()
	if err != nil {
		s.fail(c, err)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		s.fail(c, err)
		return
	}

	rec, err := s.gateway.Upload(c.Request.Context(), bucket.UploadInput{
		FileName:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
		ExternalID:  c.PostForm("idExterne"),
		Tag1:        c.PostForm("tag1"),
		Tag2:        c.PostForm("tag2"),
		Tag3:        c.PostForm("tag3"),
		Description: c.PostForm("description"),
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

func (s *Server) delete(c *gin.Context) {
	if err := s.gateway.Delete(c.Request.Context(), c.Param("id")); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) stats(c *gin.Context) {
	c.JSON(http.StatusOK, s.gateway.Stats())
}

func (s *Server) diagnostics(c *gin.Context) {
	c.JSON(http.StatusOK, s.gateway.Diagnose(c.Request.Context()))
}
