package service

import (
	"crypto/sha256"
	"crypto/subtle"
	"errors"

	"github.com/ZEBDA1/McHess/internal/auth"
	"github.com/ZEBDA1/McHess/internal/config"
)

// ErrBadCredentials 管理员账号或密码错误
var ErrBadCredentials = errors.New("invalid username or password")

// AdminService 后台管理员登录。账号密码来自部署环境，不落库
type AdminService struct {
	admin *config.AdminConfig
	jwt   *config.JWTConfig
}

// NewAdminService 创建管理服务
func NewAdminService(admin *config.AdminConfig, jwt *config.JWTConfig) *AdminService {
	return &AdminService{admin: admin, jwt: jwt}
}

// Login 校验账号密码并返回 JWT
func (s *AdminService) Login(username, password string) (string, error) {
	if username != s.admin.Username || !equalHash(password, s.admin.Password) {
		return "", ErrBadCredentials
	}
	return auth.GenerateToken(s.jwt, username)
}

// equalHash 经 sha256 后恒定时间比较，避免比较耗时泄露前缀
func equalHash(a, b string) bool {
	ha := sha256.Sum256([]byte(a))
	hb := sha256.Sum256([]byte(b))
	return subtle.ConstantTimeCompare(ha[:], hb[:]) == 1
}
