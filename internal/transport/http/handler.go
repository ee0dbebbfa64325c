package http

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hrdesk/notify-service/internal/model"
	"github.com/hrdesk/notify-service/internal/repo"
	"github.com/hrdesk/notify-service/internal/service"
)

func RegisterHandlers(r *gin.Engine, svc *service.NotifyService) {
	v1 := r.Group("/v1")
	{
		v1.POST("/employees", createEmployeeHandler(svc))
		v1.GET("/employees/:id", getEmployeeHandler(svc))
		v1.POST("/employees/:id/notify", republishHandler(svc))
		v1.GET("/notifications/stats", statsHandler(svc))
	}
}

type createEmployeeReq struct {
	Name          string `json:"name" binding:"required"`
	Email         string `json:"email" binding:"required,email"`
	Gender        string `json:"gender"`
	Position      string `json:"position" binding:"required"`
	JobLevel      string `json:"job_level" binding:"required"`
	Department    string `json:"department" binding:"required"`
	BeginContract string `json:"begin_contract" binding:"required"`
	EndContract   string `json:"end_contract" binding:"required"`
}

func createEmployeeHandler(svc *service.NotifyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createEmployeeReq
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		begin, err := time.Parse("2006-01-02", req.BeginContract)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid begin_contract"})
			return
		}
		end, err := time.Parse("2006-01-02", req.EndContract)
		if err != nil || !end.After(begin) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid end_contract"})
			return
		}
		emp := &model.Employee{
			Name:          req.Name,
			Email:         req.Email,
			Gender:        req.Gender,
			Position:      req.Position,
			JobLevel:      req.JobLevel,
			Department:    req.Department,
			BeginContract: begin,
			EndContract:   end,
		}
		msgID, err := svc.CreateEmployee(c, emp)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusCreated, gin.H{"employee": emp, "msg_id": msgID})
	}
}

func getEmployeeHandler(svc *service.NotifyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		emp, err := svc.GetEmployee(c, id)
		if err != nil {
			if errors.Is(err, repo.ErrEmployeeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, emp)
	}
}

// republishHandler starts a fresh attempt chain (new msg_id) for an employee
// whose notification ended up FAILED.
func republishHandler(svc *service.NotifyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		msgID, err := svc.PublishWelcome(c, id)
		if err != nil {
			if errors.Is(err, repo.ErrEmployeeNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, gin.H{"msg_id": msgID})
	}
}

func statsHandler(svc *service.NotifyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts, err := svc.Stats(c)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, counts)
	}
}
