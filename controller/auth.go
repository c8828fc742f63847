package controller

import (
	"log/slog"
	"net/http"

	"vstep-prep-backend/dao"
	"vstep-prep-backend/middleware"
	"vstep-prep-backend/request"
	"vstep-prep-backend/response"
	"vstep-prep-backend/service/auth"

	"github.com/gin-gonic/gin"
)

func UserRegister(c *gin.Context) {
	var req request.UserRegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	user, err := auth.UserRegister(req)
	if err != nil {
		slog.Error(ErrUserRegister.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrUserRegister.Error(),
		})
		return
	}

	token, err := middleware.GenerateToken(user.Email)
	if err != nil {
		slog.Error(ErrGenerateToken.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGenerateToken.Error(),
		})
		return
	}

	c.JSON(http.StatusCreated, response.Response{
		Data: response.UserAuthResponse{
			Email:       user.Email,
			Name:        user.Name,
			Avatar:      user.Avatar,
			TargetLevel: user.TargetLevel,
			Token:       token,
		},
	})
}

func UserLogin(c *gin.Context) {
	var req request.UserLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	user, err := auth.UserLogin(req)
	if err != nil {
		slog.Error(ErrUserLogin.Error(),
			"email", req.Email,
			"err", err,
		)
		c.AbortWithStatusJSON(http.StatusUnauthorized, response.Response{
			Msg: ErrUserLogin.Error(),
		})
		return
	}

	token, err := middleware.GenerateToken(user.Email)
	if err != nil {
		slog.Error(ErrGenerateToken.Error(),
			"email", user.Email,
			"err", err,
		)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGenerateToken.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.UserAuthResponse{
			Email:       user.Email,
			Name:        user.Name,
			Avatar:      user.Avatar,
			TargetLevel: user.TargetLevel,
			Token:       token,
		},
	})
}

func GetProfile(c *gin.Context) {
	email := c.GetString("email")
	user, err := dao.GetUserByEmail(email)
	if err != nil || user == nil {
		slog.Error(ErrGetProfile.Error(), "email", email, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
			Msg: ErrGetProfile.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, response.Response{
		Data: response.UserProfileResponse{
			Email:       user.Email,
			Name:        user.Name,
			Avatar:      user.Avatar,
			TargetLevel: user.TargetLevel,
		},
	})
}

func UpdateProfile(c *gin.Context) {
	var req struct {
		Name        string `json:"name"`
		Avatar      string `json:"avatar"`
		TargetLevel string `json:"target_level"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.Error(ErrParseRequest.Error(), "err", err)
		c.AbortWithStatusJSON(http.StatusBadRequest, response.Response{
			Msg: ErrParseRequest.Error(),
		})
		return
	}

	email := c.GetString("email")
	updates := map[string]any{}
	if req.Name != "" {
		updates["name"] = req.Name
	}
	if req.Avatar != "" {
		updates["avatar"] = req.Avatar
	}
	if req.TargetLevel != "" {
		updates["target_level"] = req.TargetLevel
	}

	if len(updates) > 0 {
		if err := dao.UpdateUserProfile(email, updates); err != nil {
			slog.Error(ErrUpdateProfile.Error(), "email", email, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, response.Response{
				Msg: ErrUpdateProfile.Error(),
			})
			return
		}
	}

	c.JSON(http.StatusOK, response.Response{})
}
