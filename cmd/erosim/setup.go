package main

import (
	"fmt"

	"github.com/san-kum/erosim/internal/compute"
	"github.com/san-kum/erosim/internal/config"
	"github.com/san-kum/erosim/internal/erosion"
	"github.com/san-kum/erosim/internal/storage"
	"github.com/san-kum/erosim/internal/terrain"
)

func newTerrain(cfg *config.Config) (*terrain.Heightmap, error) {
	if heightmapPath == "" {
		return terrain.Generate(cfg.TerrainParams())
	}
	lo := float32(cfg.Terrain.MinHeight)
	hi := lo + float32(cfg.Terrain.Amplitude)
	heights, w, err := storage.ReadTIFF(heightmapPath, lo, hi)
	if err != nil {
		return nil, fmt.Errorf("read heightmap: %w", err)
	}
	return terrain.FromHeights(w, heights)
}

// session is a bound engine plus whatever must be torn down after it.
type session struct {
	engine  *erosion.Engine
	backend erosion.Backend
	land    *terrain.Heightmap
	release func()
}

// newSession binds a fresh engine to land. GPU sessions get the best
// available device; without an OpenGL 4.3 context that is the reference
// device.
func newSession(cfg *config.Config, land *terrain.Heightmap, useGL bool) (*session, error) {
	b, err := erosion.ParseBackend(cfg.Backend)
	if err != nil {
		return nil, err
	}
	s := &session{
		engine:  erosion.NewEngine(cfg.ErosionParams()),
		backend: b,
		land:    land,
		release: func() {},
	}

	if b == erosion.GPU {
		if useGL {
			dev, release := compute.AutoSelect()
			s.release = release
			err = s.engine.SetDevice(dev)
		} else {
			err = s.engine.SetDevice(compute.NewReferenceDevice())
		}
		if err != nil {
			s.release()
			return nil, err
		}
	}

	if err := s.engine.Bind(land); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) Close() error {
	s.engine.Stop()
	err := s.engine.Release()
	s.release()
	return err
}
