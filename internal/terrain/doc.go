// Package terrain generates heightmaps from fractal noise and turns height
// and water fields into renderable meshes.
package terrain
