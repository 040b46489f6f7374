// Package frontend renders a Machine through ebiten: a 160x144 texture
// blit every frame, keyboard mapped to the eight DMG buttons, and a
// handful of playback toggles (pause, turbo, fullscreen).
package frontend

import (
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/lowbyte-dev/dmg-core/internal/emu"
)

// App is an ebiten.Game driving one emu.Machine.
type App struct {
	cfg    Config
	m      *emu.Machine
	tex    *ebiten.Image
	paused bool
	turbo  bool

	lastTitleUpdate time.Time
	frames          int
}

// NewApp wires a Machine to a window of the given config.
func NewApp(cfg Config, m *emu.Machine) *App {
	cfg.Defaults()
	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(160*cfg.Scale, 144*cfg.Scale)
	ebiten.SetWindowResizable(true)
	return &App{cfg: cfg, m: m, lastTitleUpdate: time.Now()}
}

// Run blocks until the window is closed.
func (a *App) Run() error { return ebiten.RunGame(a) }

func (a *App) Update() error {
	if inpututil.IsKeyJustPressed(ebiten.KeyP) {
		a.paused = !a.paused
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}
	a.turbo = ebiten.IsKeyPressed(ebiten.KeyTab)

	a.m.SetButtons(emu.Buttons{
		Up:     ebiten.IsKeyPressed(ebiten.KeyUp),
		Down:   ebiten.IsKeyPressed(ebiten.KeyDown),
		Left:   ebiten.IsKeyPressed(ebiten.KeyLeft),
		Right:  ebiten.IsKeyPressed(ebiten.KeyRight),
		A:      ebiten.IsKeyPressed(ebiten.KeyZ),
		B:      ebiten.IsKeyPressed(ebiten.KeyX),
		Start:  ebiten.IsKeyPressed(ebiten.KeyEnter),
		Select: ebiten.IsKeyPressed(ebiten.KeyShiftRight),
	})

	if !a.paused {
		steps := 1
		if a.turbo {
			steps = 4
		}
		for i := 0; i < steps; i++ {
			a.m.StepFrame()
		}
		a.frames += steps
	}
	return nil
}

func (a *App) Draw(screen *ebiten.Image) {
	if a.tex == nil {
		a.tex = ebiten.NewImage(160, 144)
	}
	a.tex.WritePixels(a.m.Framebuffer())
	screen.DrawImage(a.tex, nil)

	if time.Since(a.lastTitleUpdate) > time.Second {
		title := a.cfg.Title
		if a.paused {
			title += " [paused]"
		}
		ebiten.SetWindowTitle(title)
		a.lastTitleUpdate = time.Now()
	}
}

func (a *App) Layout(outsideWidth, outsideHeight int) (int, int) { return 160, 144 }
