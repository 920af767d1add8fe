package pos

import (
	"context"
	"encoding/base64"
	"encoding/json"

	"github.com/pkg/errors"
)

type Direction string

const (
	DirInitial Direction = "initial"
	DirNext    Direction = "next"
	DirPrev    Direction = "prev"
)

// Cursor menunjuk baris batas berdasarkan NILAI sort key (+ id sebagai
// tiebreaker), bukan offset. Insert/delete di luar window tidak bikin baris
// dobel atau kelewat.
type Cursor struct {
	Key string `json:"k"`
	ID  string `json:"id"`
}

// CursorState: batas pertama/terakhir halaman yang barusan di-fetch plus
// stack first-cursor halaman yang sudah dikunjungi (prev hanya bisa mundur
// lewat halaman yang pernah dilihat di sesi ini).
type CursorState struct {
	First *Cursor  `json:"first,omitempty"`
	Last  *Cursor  `json:"last,omitempty"`
	Stack []Cursor `json:"stack,omitempty"`
}

// EncodeState jadi token opaque untuk client.
func EncodeState(st CursorState) string {
	b, _ := json.Marshal(st)
	return base64.RawURLEncoding.EncodeToString(b)
}

func DecodeState(token string) (CursorState, error) {
	var st CursorState
	if token == "" {
		return st, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return st, errors.Wrap(err, "decode cursor")
	}
	if err := json.Unmarshal(b, &st); err != nil {
		return st, errors.Wrap(err, "decode cursor")
	}
	return st, nil
}

type Page[T any] struct {
	Items   []T
	State   CursorState
	HasNext bool
}

// Paginator jalan di atas fungsi fetch keyset milik store; read-only, tidak
// pernah ikut transaksi write.
type Paginator[T any] struct {
	Fetch    func(ctx context.Context, q PageQuery) ([]T, error)
	CursorOf func(T) Cursor
	SortKey  string
	Desc     bool
	Size     int
}

func (p *Paginator[T]) Page(ctx context.Context, dir Direction, st CursorState) (Page[T], error) {
	switch dir {
	case DirNext:
		// token dari client bisa saja cuma sebagian; state tanpa kedua batas
		// tidak bisa dipakai maju -> reset
		if st.Last == nil || st.First == nil {
			return p.initial(ctx)
		}
		return p.next(ctx, st)
	case DirPrev:
		if st.First == nil || len(st.Stack) == 0 {
			// belum ada halaman sebelumnya di sesi ini -> reset
			return p.initial(ctx)
		}
		return p.prev(ctx, st)
	default:
		return p.initial(ctx)
	}
}

func (p *Paginator[T]) initial(ctx context.Context) (Page[T], error) {
	rows, err := p.Fetch(ctx, PageQuery{SortKey: p.SortKey, Desc: p.Desc, Limit: p.Size + 1})
	if err != nil {
		return Page[T]{}, err
	}
	hasNext := len(rows) > p.Size
	if hasNext {
		rows = rows[:p.Size]
	}
	return Page[T]{Items: rows, State: p.state(rows, nil), HasNext: hasNext}, nil
}

func (p *Paginator[T]) next(ctx context.Context, st CursorState) (Page[T], error) {
	rows, err := p.Fetch(ctx, PageQuery{
		SortKey: p.SortKey, Desc: p.Desc,
		After: st.Last, Limit: p.Size + 1,
	})
	if err != nil {
		return Page[T]{}, err
	}
	if len(rows) == 0 {
		// tidak ada halaman berikut; state lama tetap berlaku
		return Page[T]{Items: nil, State: st, HasNext: false}, nil
	}
	hasNext := len(rows) > p.Size
	if hasNext {
		rows = rows[:p.Size]
	}
	stack := append(append([]Cursor(nil), st.Stack...), *st.First)
	return Page[T]{Items: rows, State: p.state(rows, stack), HasNext: hasNext}, nil
}

func (p *Paginator[T]) prev(ctx context.Context, st CursorState) (Page[T], error) {
	rows, err := p.Fetch(ctx, PageQuery{
		SortKey: p.SortKey, Desc: p.Desc,
		Before: st.First, Limit: p.Size,
	})
	if err != nil {
		return Page[T]{}, err
	}
	// fetch Before jalan mundur dari cursor; balikkan ke display order
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	stack := append([]Cursor(nil), st.Stack[:len(st.Stack)-1]...)
	// kita mundur dari halaman yang lebih belakang, jadi pasti ada next
	return Page[T]{Items: rows, State: p.state(rows, stack), HasNext: true}, nil
}

func (p *Paginator[T]) state(rows []T, stack []Cursor) CursorState {
	st := CursorState{Stack: stack}
	if len(rows) > 0 {
		first := p.CursorOf(rows[0])
		last := p.CursorOf(rows[len(rows)-1])
		st.First, st.Last = &first, &last
	}
	return st
}
