package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// parseIDParam parses the :id path parameter as a UUID. On failure it
// writes a 400 response and returns false.
func (h *BaseHandler) parseIDParam(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "Invalid ID format")
		return uuid.Nil, false
	}
	return id, true
}

// parseSequenceParam parses the :sequence path parameter as a positive
// integer. On failure it writes a 400 response and returns false.
func (h *BaseHandler) parseSequenceParam(c *gin.Context) (int, bool) {
	seq, err := strconv.Atoi(c.Param("sequence"))
	if err != nil || seq < 1 {
		h.BadRequest(c, "Invalid installment sequence")
		return 0, false
	}
	return seq, true
}
