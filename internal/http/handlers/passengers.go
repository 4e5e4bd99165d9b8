package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"railway/internal/domain"
	"railway/internal/domain/models"
	"railway/internal/services"
)

type PassengerHandler struct {
	Passengers services.PassengerService
}

type updatePassengerRequest struct {
	Version int `json:"version"`
	models.PassengerPatch
}

type deletePassengerRequest struct {
	Version int `json:"version"`
}

func (h PassengerHandler) List(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	list, err := h.Passengers.List(c.Request.Context(), uid)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"passengers": list})
}

func (h PassengerHandler) Get(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := h.Passengers.Get(c.Request.Context(), uid, id)
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// Update applies the fields present in the body when version still matches.
func (h PassengerHandler) Update(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req updatePassengerRequest
	if !BindJSONOrError(c, &req) {
		return
	}

	res, err := h.Passengers.Update(c.Request.Context(), uid, id, req.PassengerPatch, req.Version)
	if errors.Is(err, domain.ErrVersionConflict) {
		c.JSON(http.StatusConflict, gin.H{
			"success": false,
			"code":    domain.Code(err),
			"message": err.Error(),
		})
		return
	}
	if err != nil {
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// Delete soft-deletes a passenger. The version comes from the body or the
// ?version= query.
func (h PassengerHandler) Delete(c *gin.Context) {
	uid, ok := currentUser(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req deletePassengerRequest
	if c.Request.ContentLength > 0 {
		if !BindJSONOrError(c, &req) {
			return
		}
	} else if v := c.Query("version"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			respondError(c, http.StatusBadRequest, "validation_error", "invalid version", nil)
			return
		}
		req.Version = n
	}

	if err := h.Passengers.Delete(c.Request.Context(), uid, id, req.Version); err != nil {
		if errors.Is(err, domain.ErrVersionConflict) {
			c.JSON(http.StatusConflict, gin.H{"success": false, "code": domain.Code(err), "message": err.Error()})
			return
		}
		RespondDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}
