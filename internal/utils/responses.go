package utils

import "github.com/gin-gonic/gin"

func SuccessResponse(message string, data interface{}) gin.H {
	return gin.H{
		"success": true,
		"message": message,
		"data":    data,
	}
}

func ErrorResponse(message, detail string) gin.H {
	resp := gin.H{
		"success": false,
		"message": message,
	}
	if detail != "" {
		resp["detail"] = detail
	}
	return resp
}
