package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"car-rental-api/internal/media"
	"car-rental-api/internal/middleware"
)

func (h *Handler) GetMe(c *gin.Context) {
	u, err := h.store.UserByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, toUserPrivate(u))
}

func (h *Handler) GetUser(c *gin.Context) {
	u, err := h.store.UserByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, toUserPublic(u))
}

type userUpdateRequest struct {
	Username *string `json:"username" binding:"omitempty,min=1,max=50"`
	Email    *string `json:"email" binding:"omitempty,email,max=120"`
}

func (h *Handler) UpdateUser(c *gin.Context) {
	id := c.Param("id")
	if id != middleware.UserID(c) {
		forbidden(c, "Not authorized to update this user")
		return
	}

	var req userUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err.Error())
		return
	}

	u, err := h.store.UserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "User not found")
		return
	}

	if req.Username != nil && !strings.EqualFold(*req.Username, u.Username) {
		taken, err := h.store.UsernameTaken(c.Request.Context(), *req.Username, id)
		if err != nil {
			fail(c, err, "")
			return
		}
		if taken {
			badRequest(c, "User already exists")
			return
		}
		u.Username = *req.Username
	}
	if req.Email != nil && !strings.EqualFold(*req.Email, u.Email) {
		taken, err := h.store.EmailTaken(c.Request.Context(), *req.Email, id)
		if err != nil {
			fail(c, err, "")
			return
		}
		if taken {
			badRequest(c, "Email already registered")
			return
		}
		u.Email = strings.ToLower(*req.Email)
	}

	if err := h.store.UpdateUser(c.Request.Context(), u); err != nil {
		fail(c, err, "User not found")
		return
	}
	c.JSON(http.StatusOK, toUserPrivate(u))
}

func (h *Handler) DeleteUser(c *gin.Context) {
	id := c.Param("id")
	if id != middleware.UserID(c) {
		forbidden(c, "Not authorized to delete this user")
		return
	}

	u, err := h.store.UserByID(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "User not found")
		return
	}
	// snapshot owned car images before the rows go away
	cars, err := h.store.CarsByOwner(c.Request.Context(), id)
	if err != nil {
		fail(c, err, "")
		return
	}

	if err := h.store.DeleteUser(c.Request.Context(), id); err != nil {
		fail(c, err, "User not found")
		return
	}

	_ = h.media.Remove(media.ProfilePics, u.ImageFile)
	for i := range cars {
		_ = h.media.Remove(media.CarImages, cars[i].ImageFile)
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("image")
	if err != nil {
		badRequest(c, "image file required")
		return
	}

	u, err := h.store.UserByID(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		fail(c, err, "User not found")
		return
	}

	name, err := h.media.Save(media.ProfilePics, fh)
	if err != nil {
		fail(c, err, "")
		return
	}

	old := u.ImageFile
	u.ImageFile = name
	if err := h.store.UpdateUser(c.Request.Context(), u); err != nil {
		_ = h.media.Remove(media.ProfilePics, name)
		fail(c, err, "User not found")
		return
	}
	_ = h.media.Remove(media.ProfilePics, old)

	c.JSON(http.StatusOK, toUserPrivate(u))
}
