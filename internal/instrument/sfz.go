package instrument

import (
	"bufio"
	"fmt"
)

// WriteSfz writes an sfz-style text instrument definition: a <control>
// default_path block, a <global> block carrying the release envelope,
// then a <region> per sample. With more than one velocity layer each
// layer's regions follow a <group> carrying its lovel/hivel; with a
// single layer no <group> is written and each <region> carries
// lovel/hivel itself.
func WriteSfz(path string, layers []Layer, defaultPath string, releaseSeconds float64) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintln(w, "// generated instrument definition")
	fmt.Fprintf(w, "<control>\ndefault_path=%s\n</control>\n", defaultPath)
	fmt.Fprintf(w, "<global>\nampeg_release=%g\n</global>\n", releaseSeconds)

	singleLayer := len(layers) == 1
	for _, layer := range layers {
		if !singleLayer {
			fmt.Fprintf(w, "<group>\nlovel=%d\nhivel=%d\n</group>\n", layer.LoVel, layer.HiVel)
		}
		for _, r := range layer.Regions {
			fmt.Fprintln(w, "<region>")
			fmt.Fprintf(w, "sample=%s\nkey=%d\n", r.Path, r.Note)
			if singleLayer {
				fmt.Fprintf(w, "lovel=%d\nhivel=%d\n", layer.LoVel, layer.HiVel)
			}
			if r.HasLoop {
				fmt.Fprintf(w, "loop_mode=loop_continuous\nloop_start=%d\nloop_end=%d\n", r.LoopStart, r.LoopEnd)
			}
			fmt.Fprintln(w, "</region>")
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("instrument: write %s: %w", path, err)
	}
	return nil
}
