package domain

import "errors"

// Authentication and gating failures. Wrong username and wrong password map
// to the same ErrInvalidCredentials so the gate never leaks which one it was.
var (
	ErrEmptyCredentials   = errors.New("用户名和密码不能为空")
	ErrForbiddenName      = errors.New("用户名包含禁止内容，请重新输入")
	ErrAlreadyOnline      = errors.New("该用户已在线，请稍后再试")
	ErrInvalidCredentials = errors.New("用户名或密码错误")
	ErrUserExists         = errors.New("用户名已存在")
	ErrNotAuthenticated   = errors.New("not authenticated")
)
