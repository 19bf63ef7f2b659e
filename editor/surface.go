package editor

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/neovim/go-client/nvim"

	"github.com/akiyosi/gonvim-hover/decorate"
	"github.com/akiyosi/gonvim-hover/util"
)

const previewName = "gonvim-hover://hover"

// nvimFront reads buffers and echoes notices.
type nvimFront struct {
	nvim *nvim.Nvim
}

func bufferRef(buf int) string {
	if buf == 0 {
		return "'%'"
	}
	return fmt.Sprint(buf)
}

func snapshotExpr(buf int) string {
	ref := bufferRef(buf)
	cursor := "line('.'), col('.')"
	if buf != 0 {
		cursor = fmt.Sprintf("get(get(getbufinfo(%s), 0, {}), 'lnum', 1), 1", ref)
	}
	return fmt.Sprintf(
		"[bufnr(%[1]s), bufname(%[1]s) ==# '' ? '' : fnamemodify(bufname(%[1]s), ':p'), getbufvar(%[1]s, '&filetype'), %[2]s]",
		ref, cursor,
	)
}

// fileURI converts an absolute path to a file:// URI.
func fileURI(path string) string {
	if path == "" {
		return ""
	}
	path = filepath.ToSlash(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return (&url.URL{Scheme: "file", Path: path}).String()
}

func (f *nvimFront) Snapshot(ctx context.Context, buf int) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}
	var info []interface{}
	if err := f.nvim.Eval(snapshotExpr(buf), &info); err != nil {
		return Snapshot{}, err
	}
	if len(info) != 5 {
		return Snapshot{}, fmt.Errorf("unexpected buffer info %v", info)
	}
	bufnr := util.ReflectToInt(info[0])
	if bufnr < 1 {
		return Snapshot{}, fmt.Errorf("buffer %d does not exist", buf)
	}
	name, _ := info[1].(string)
	filetype, _ := info[2].(string)

	raw, err := f.nvim.BufferLines(nvim.Buffer(bufnr), 0, -1, true)
	if err != nil {
		return Snapshot{}, err
	}
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = string(l)
	}

	return Snapshot{
		Bufnr:    bufnr,
		Name:     name,
		URI:      fileURI(name),
		Filetype: filetype,
		Lines:    lines,
		Row:      util.ReflectToInt(info[3]) - 1,
		Col:      util.ReflectToInt(info[4]) - 1,
	}, nil
}

// vimString quotes s as a Vim single-quoted string.
func vimString(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func echoCommand(msg, highlight string) string {
	if highlight == "" {
		return "echomsg " + vimString(msg)
	}
	return fmt.Sprintf("echohl %s | echomsg %s | echohl None", highlight, vimString(msg))
}

func (f *nvimFront) Echo(ctx context.Context, msg, highlight string) error {
	return f.nvim.Command(echoCommand(msg, highlight))
}

// nvimSurfaces opens floats and the preview window.
type nvimSurfaces struct {
	nvim   *nvim.Nvim
	config hoverSection
}

// floatSize fits lines into at most maxWidth x maxHeight cells.
func floatSize(lines []string, maxWidth, maxHeight int) (int, int) {
	width := 1
	for _, l := range lines {
		if w := runewidth.StringWidth(l); w > width {
			width = w
		}
	}
	width = min(width, maxWidth)

	height := 0
	for _, l := range lines {
		w := runewidth.StringWidth(l)
		if w == 0 {
			height++
			continue
		}
		height += (w + width - 1) / width
	}

	return width, max(1, min(height, maxHeight))
}

func toBytes(lines []string) [][]byte {
	out := make([][]byte, len(lines))
	for i, l := range lines {
		out[i] = []byte(l)
	}
	return out
}

type floatSurface struct {
	nvim *nvim.Nvim
	win  nvim.Window
	buf  nvim.Buffer
}

func (s *floatSurface) Target() decorate.Target {
	return decorate.Target{Window: int(s.win), Buffer: int(s.buf)}
}

func (s *floatSurface) Close() error {
	valid, err := s.nvim.IsWindowValid(s.win)
	if err != nil || !valid {
		return err
	}
	return s.nvim.CloseWindow(s.win, true)
}

func closeOnMoveScript(win nvim.Window) string {
	return fmt.Sprintf(`
aug GonvimHoverFloat | au! | aug END
au GonvimHoverFloat CursorMoved,CursorMovedI,InsertEnter,BufLeave <buffer> ++once if nvim_win_is_valid(%[1]d) | call nvim_win_close(%[1]d, v:true) | endif`, int(win))
}

func (s *nvimSurfaces) OpenFloat(ctx context.Context, lines []string) (Surface, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	buf, err := s.nvim.CreateBuffer(false, true)
	if err != nil {
		return nil, err
	}
	if err := s.nvim.SetBufferLines(buf, 0, -1, true, toBytes(lines)); err != nil {
		return nil, err
	}

	width, height := floatSize(lines, s.config.MaxWidth, s.config.MaxHeight)
	var win nvim.Window
	err = s.nvim.Request("nvim_open_win", &win, buf, false, map[string]interface{}{
		"relative":  "cursor",
		"anchor":    "SW",
		"row":       0,
		"col":       0,
		"width":     width,
		"height":    height,
		"style":     "minimal",
		"border":    s.config.Border,
		"focusable": true,
	})
	if err != nil {
		return nil, err
	}

	b := s.nvim.NewBatch()
	b.SetBufferOption(buf, "bufhidden", "wipe")
	b.SetWindowOption(win, "wrap", true)
	b.Command(fmt.Sprintf("call execute(%s)", util.SplitVimscript(closeOnMoveScript(win))))
	if err := b.Execute(); err != nil {
		return nil, err
	}

	return &floatSurface{nvim: s.nvim, win: win, buf: buf}, nil
}

func (s *nvimSurfaces) OpenPreview(ctx context.Context, lines []string) (decorate.Target, error) {
	if err := ctx.Err(); err != nil {
		return decorate.Target{}, err
	}
	if err := s.nvim.Command("silent! pedit " + previewName); err != nil {
		return decorate.Target{}, err
	}
	var bufnr, winid int
	if err := s.nvim.Call("bufnr", &bufnr, previewName); err != nil {
		return decorate.Target{}, err
	}
	if err := s.nvim.Call("bufwinid", &winid, bufnr); err != nil {
		return decorate.Target{}, err
	}
	if bufnr < 1 || winid < 1 {
		return decorate.Target{}, fmt.Errorf("preview window is not open")
	}

	b := s.nvim.NewBatch()
	b.Call("setbufvar", new(interface{}), bufnr, "&buftype", "nofile")
	b.Call("setbufvar", new(interface{}), bufnr, "&bufhidden", "delete")
	b.Call("deletebufline", new(interface{}), bufnr, 1, "$")
	b.Call("setbufline", new(interface{}), bufnr, 1, lines)
	b.Call("win_execute", new(interface{}), winid, "call cursor(1, 1)")
	if err := b.Execute(); err != nil {
		return decorate.Target{}, err
	}

	return decorate.Target{Window: winid, Buffer: bufnr}, nil
}
