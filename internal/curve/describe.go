package curve

import (
	"fmt"
	"strings"
)

// String возвращает параметры кривой одной строкой.
func (p Params) String() string {
	return fmt.Sprintf(
		"amp=%.4f φa=%.4f osc=%.4f φo=%.4f harm=%.4f z=[%.3f..%.3f] n=%d jitter=%s",
		p.Amplitude, p.AmplitudePhase,
		p.Oscillation, p.OscillationPhase,
		p.Harmonic, p.ZMin, p.ZMax,
		p.NumPoints, p.Jitter,
	)
}

// Describe возвращает многострочное описание кривой для отчёта.
func (p Params) Describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Кривая палитры (схема %d, встраивание %s)\n", max(p.Schema, Schema), p.Embedding)
	fmt.Fprintf(&b, "  Амплитуда:        %.4f (фаза %.4f)\n", p.Amplitude, p.AmplitudePhase)
	fmt.Fprintf(&b, "  Осцилляция:       %.4f (фаза %.4f)\n", p.Oscillation, p.OscillationPhase)
	fmt.Fprintf(&b, "  Гармоника:        %.4f\n", p.Harmonic)
	fmt.Fprintf(&b, "  Диапазон Z:       %.4f .. %.4f\n", p.ZMin, p.ZMax)
	fmt.Fprintf(&b, "  Точек:            %d\n", p.NumPoints)
	fmt.Fprintf(&b, "  Дрожание:         %s (seed %d)", p.Jitter, p.Seed)
	return b.String()
}
