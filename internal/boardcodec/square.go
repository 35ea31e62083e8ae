package boardcodec

import (
	"fmt"

	"github.com/park285/cheese-board-client/internal/domain"
)

// EncodeSquare maps (0,0) to "a1" and (7,7) to "h8".
func EncodeSquare(sq domain.Square) (string, error) {
	if err := sq.Check(); err != nil {
		return "", err
	}
	return string([]byte{byte('a' + sq.File), byte('1' + sq.Rank)}), nil
}

func DecodeSquare(token string) (domain.Square, error) {
	if len(token) != 2 {
		return domain.Square{}, fmt.Errorf("%w: token %q", domain.ErrInvalidSquare, token)
	}
	sq := domain.Square{File: int(token[0]) - 'a', Rank: int(token[1]) - '1'}
	if err := sq.Check(); err != nil {
		return domain.Square{}, fmt.Errorf("%w: token %q", domain.ErrInvalidSquare, token)
	}
	return sq, nil
}
