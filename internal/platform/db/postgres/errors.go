package postgres

import (
	"context"
	"errors"
	"net"

	"github.com/jackc/pgx/v5/pgconn"
)

// ErrUnavailable はデータベースへ到達できないことを表します。
var ErrUnavailable = errors.New("postgres: database unavailable")

const (
	// SQLSTATE class 08 (connection exception) と 57P01..57P03 (管理者による停止など)。
	connectionExceptionClass = "08"
	adminShutdownCode        = "57P01"
	crashShutdownCode        = "57P02"
	cannotConnectNowCode     = "57P03"
)

// IsUnavailable は err が接続断・接続失敗・タイムアウトなど、データベースへ到達できないことに起因するかを判定します。
// 制約違反などサーバーが応答したエラーは false です。
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrUnavailable) {
		return true
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case len(pgErr.Code) == 5 && pgErr.Code[:2] == connectionExceptionClass:
			return true
		case pgErr.Code == adminShutdownCode, pgErr.Code == crashShutdownCode, pgErr.Code == cannotConnectNowCode:
			return true
		default:
			return false
		}
	}

	if pgconn.Timeout(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return pgconn.SafeToRetry(err)
}
