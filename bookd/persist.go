package main

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const (
	edaxMagic   uint32 = 'E' | 'D'<<8 | 'A'<<16 | 'X'<<24
	bookMagic   uint32 = 'B' | 'O'<<8 | 'O'<<16 | 'K'<<24
	bookVersion byte   = 1
	bookRelease byte   = 1

	zstExt = ".zst"
	txtExt = ".txt"
)

// bookFormat is the load/save strategy for one on-disk representation,
// selected by file extension at the boundary.
type bookFormat struct {
	save func(bk *Book, w io.Writer) error
	load func(r io.Reader, logger *log.Logger) (*Book, error)
}

func formatFor(path string) (bookFormat, bool) {
	switch {
	case strings.HasSuffix(path, txtExt):
		return bookFormat{save: exportText, load: importText}, false
	case strings.HasSuffix(path, zstExt):
		return bookFormat{save: saveBinary, load: loadBinary}, true
	default:
		return bookFormat{save: saveBinary, load: loadBinary}, false
	}
}

// SaveBook writes the book atomically: a temp file in the target directory,
// fsync'd and renamed into place, so a crash never leaves a half-written
// file behind the real name.
func SaveBook(bk *Book, path string) error {
	format, compressed := formatFor(path)
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create book directory %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("create temp book file: %w", err)
	}
	defer os.Remove(tmp.Name())

	var w io.Writer = tmp
	var zw *zstd.Encoder
	if compressed {
		zw, err = zstd.NewWriter(tmp)
		if err != nil {
			tmp.Close()
			return fmt.Errorf("zstd writer: %w", err)
		}
		w = zw
	}
	bw := bufio.NewWriter(w)
	if err := format.save(bk, bw); err != nil {
		tmp.Close()
		return fmt.Errorf("write book: %w", err)
	}
	if err := bw.Flush(); err != nil {
		tmp.Close()
		return fmt.Errorf("flush book: %w", err)
	}
	if zw != nil {
		if err := zw.Close(); err != nil {
			tmp.Close()
			return fmt.Errorf("close zstd stream: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync book: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close book: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename book into place: %w", err)
	}
	return nil
}

// LoadBook reads a book from path, dispatching on extension.
func LoadBook(path string, logger *log.Logger) (*Book, error) {
	format, compressed := formatFor(path)
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open book %s: %w", path, err)
	}
	defer file.Close()
	var r io.Reader = bufio.NewReader(file)
	if compressed {
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("zstd reader: %w", err)
		}
		defer zr.Close()
		r = zr
	}
	bk, err := format.load(r, logger)
	if err != nil {
		return nil, fmt.Errorf("load book %s: %w", path, err)
	}
	return bk, nil
}

// LoadOrNew is the fail-soft entry point: any open/format/version problem is
// logged and answered with a fresh book of the configured strength.
func LoadOrNew(path string, logger *log.Logger) *Book {
	config := GetConfig()
	bk, err := LoadBook(path, logger)
	if err != nil {
		logger.Printf("[book:io] %v; starting a fresh level %d book", err, config.Level)
		return NewBook(config.Level, config.NEmpties, logger)
	}
	logger.Printf("[book:io] loaded %d positions from %s", bk.Count(), path)
	return bk
}

func saveBinary(bk *Book, w io.Writer) error {
	now := time.Now()
	header := []any{
		edaxMagic,
		bookMagic,
		bookVersion,
		bookRelease,
		uint16(now.Year()),
		uint8(now.Month()),
		uint8(now.Day()),
		uint8(now.Hour()),
		uint8(now.Minute()),
		uint8(now.Second()),
		int32(bk.level),
		int32(bk.nEmpties),
		int32(bk.midgameError),
		int32(bk.endcutError),
		uint32(bk.store.Count()),
	}
	for _, field := range header {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	var writeErr error
	bk.store.ForEach(func(p *Position) {
		if writeErr != nil {
			return
		}
		writeErr = writePosition(w, p)
	})
	return writeErr
}

func writePosition(w io.Writer, p *Position) error {
	fields := []any{
		p.Board.Player,
		p.Board.Opponent,
		p.Wins,
		p.Draws,
		p.Losses,
		p.Lines,
		p.Score.Value,
		p.Score.Lower,
		p.Score.Upper,
		uint8(len(p.Links)),
		p.Level,
	}
	for _, field := range fields {
		if err := binary.Write(w, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	for _, l := range p.Links {
		if err := binary.Write(w, binary.LittleEndian, l); err != nil {
			return err
		}
	}
	return binary.Write(w, binary.LittleEndian, p.Leaf)
}

func loadBinary(r io.Reader, logger *log.Logger) (*Book, error) {
	var magic1, magic2 uint32
	if err := readFields(r, &magic1, &magic2); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if magic1 != edaxMagic || magic2 != bookMagic {
		return nil, fmt.Errorf("bad magic %08x/%08x", magic1, magic2)
	}
	var version, release byte
	if err := readFields(r, &version, &release); err != nil {
		return nil, fmt.Errorf("read version: %w", err)
	}
	if version != bookVersion {
		return nil, fmt.Errorf("unsupported book version %d.%d", version, release)
	}
	var year uint16
	var month, day, hour, minute, second uint8
	if err := readFields(r, &year, &month, &day, &hour, &minute, &second); err != nil {
		return nil, fmt.Errorf("read date: %w", err)
	}
	var level, nEmpties, midgameError, endcutError int32
	var count uint32
	if err := readFields(r, &level, &nEmpties, &midgameError, &endcutError, &count); err != nil {
		return nil, fmt.Errorf("read options: %w", err)
	}

	bk := emptyBook(int(level), int(nEmpties), logger)
	bk.midgameError = int(midgameError)
	bk.endcutError = int(endcutError)
	bk.store = NewPositionStore(int(count))
	for i := uint32(0); i < count; i++ {
		p, err := readPosition(r)
		if err != nil {
			return nil, fmt.Errorf("read position %d/%d: %w", i+1, count, err)
		}
		bk.store.Insert(p)
	}
	bk.Negamax()
	return bk, nil
}

func readPosition(r io.Reader) (*Position, error) {
	p := &Position{}
	var nLink uint8
	if err := readFields(r,
		&p.Board.Player, &p.Board.Opponent,
		&p.Wins, &p.Draws, &p.Losses, &p.Lines,
		&p.Score.Value, &p.Score.Lower, &p.Score.Upper,
		&nLink, &p.Level,
	); err != nil {
		return nil, err
	}
	p.Links = make([]Link, nLink)
	for i := range p.Links {
		if err := readFields(r, &p.Links[i]); err != nil {
			return nil, err
		}
	}
	if err := readFields(r, &p.Leaf); err != nil {
		return nil, err
	}
	return p, nil
}

func readFields(r io.Reader, fields ...any) error {
	for _, field := range fields {
		if err := binary.Read(r, binary.LittleEndian, field); err != nil {
			return err
		}
	}
	return nil
}

// exportText writes one line per position: board,level,best-move,score.
// Links and statistics are not kept by this format; import rebuilds them.
func exportText(bk *Book, w io.Writer) error {
	var writeErr error
	bk.store.ForEach(func(p *Position) {
		if writeErr != nil {
			return
		}
		move, score, ok := p.BestMove()
		if !ok {
			move, score = NoMove, 0
		}
		_, writeErr = fmt.Fprintf(w, "%s,%d,%s,%d\n", p.Board, p.Level, MoveString(move), score)
	})
	return writeErr
}

// importText reads the portable format; blank or unparsable lines are
// skipped with a warning. Links and scores are re-derived afterwards.
func importText(r io.Reader, logger *log.Logger) (*Book, error) {
	config := GetConfig()
	bk := emptyBook(config.Level, config.NEmpties, logger)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		p, err := parseTextPosition(line)
		if err != nil {
			logger.Printf("[book:io] skipping line %d: %v", lineNo, err)
			continue
		}
		bk.store.Insert(p)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read text book: %w", err)
	}
	bk.RelinkAll()
	bk.Negamax()
	return bk, nil
}

func parseTextPosition(line string) (*Position, error) {
	parts := strings.Split(line, ",")
	if len(parts) != 4 {
		return nil, fmt.Errorf("want 4 comma-separated fields, got %d", len(parts))
	}
	board, err := ParseBoard(parts[0])
	if err != nil {
		return nil, err
	}
	level, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || level < 1 || level > 255 {
		return nil, fmt.Errorf("bad level %q", parts[1])
	}
	move, err := ParseMove(parts[2])
	if err != nil {
		return nil, err
	}
	score, err := strconv.Atoi(strings.TrimSpace(parts[3]))
	if err != nil || score < -ScoreInf || score > ScoreInf {
		return nil, fmt.Errorf("bad score %q", parts[3])
	}
	canonical, sym := Canonicalize(board)
	p := NewPosition(canonical, level)
	if move != NoMove || board.IsGameOver() {
		p.Leaf = Link{Score: int8(score), Move: uint8(TransformMove(move, sym))}
	}
	p.Score.Value = int16(score)
	return p, nil
}
