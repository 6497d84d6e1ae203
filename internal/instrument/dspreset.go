package instrument

import (
	"bufio"
	"fmt"
)

// WriteDspreset writes a DecentSampler-style .dspreset XML document
// covering every region in layers, one <group> per velocity layer.
func WriteDspreset(path string, layers []Layer, creator, description string) error {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	fmt.Fprintf(w, "<!-- creator: %s -->\n", creator)
	fmt.Fprintf(w, "<!-- description: %s -->\n", description)
	fmt.Fprintln(w, `<DecentSampler>`)
	fmt.Fprintln(w, `  <ui/>`)
	fmt.Fprintln(w, `  <groups>`)
	for _, layer := range layers {
		fmt.Fprintln(w, `    <group>`)
		for _, r := range layer.Regions {
			if r.HasLoop {
				fmt.Fprintf(w, "      <sample path=%q loNote=\"%d\" hiNote=\"%d\" rootNote=\"%d\" loVel=\"%d\" hiVel=\"%d\" loopEnabled=\"true\" loopStart=\"%d\" loopEnd=\"%d\"/>\n",
					r.Path, r.Note, r.Note, r.Note, layer.LoVel, layer.HiVel, r.LoopStart, r.LoopEnd)
			} else {
				fmt.Fprintf(w, "      <sample path=%q loNote=\"%d\" hiNote=\"%d\" rootNote=\"%d\" loVel=\"%d\" hiVel=\"%d\"/>\n",
					r.Path, r.Note, r.Note, r.Note, layer.LoVel, layer.HiVel)
			}
		}
		fmt.Fprintln(w, `    </group>`)
	}
	fmt.Fprintln(w, `  </groups>`)
	fmt.Fprintln(w, `</DecentSampler>`)

	if err := w.Flush(); err != nil {
		return fmt.Errorf("instrument: write %s: %w", path, err)
	}
	return nil
}
