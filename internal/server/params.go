package server

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"shop-orders/internal/domain"
	"shop-orders/internal/service"
)

func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		writeError(c, domain.Invalidf("%s must be a uuid", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) (int, bool) {
	v := c.Query(name)
	if v == "" {
		return def, true
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		writeError(c, domain.Invalidf("%s must be an integer", name))
		return 0, false
	}
	return n, true
}

func queryPage(c *gin.Context) (service.Page, bool) {
	number, ok := queryInt(c, "page", 1)
	if !ok {
		return service.Page{}, false
	}
	size, ok := queryInt(c, "size", 0)
	if !ok {
		return service.Page{}, false
	}
	return service.Page{Number: number, Size: size}, true
}
