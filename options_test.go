package pica

import "testing"

func TestDefaultOptions(t *testing.T) {
	o := defaultOptions()
	if o.safetyWindow != 4 {
		t.Errorf("safetyWindow = %d, want 4", o.safetyWindow)
	}
	if o.heapSize != DefaultHeapSize {
		t.Errorf("heapSize = %d, want %d", o.heapSize, DefaultHeapSize)
	}
	if o.headless || o.device != nil || o.provider != nil {
		t.Error("default options select a device")
	}
}

func TestOptionsIgnoreZero(t *testing.T) {
	o := defaultOptions()
	WithSafetyWindow(0)(&o)
	WithHeapSize(0)(&o)
	WithHeapSize(-5)(&o)
	if o.safetyWindow != 4 || o.heapSize != DefaultHeapSize {
		t.Errorf("zero options changed defaults: %+v", o)
	}

	WithSafetyWindow(6)(&o)
	WithHeapSize(1 << 20)(&o)
	WithHeadless()(&o)
	if o.safetyWindow != 6 || o.heapSize != 1<<20 || !o.headless {
		t.Errorf("options not applied: %+v", o)
	}
}
