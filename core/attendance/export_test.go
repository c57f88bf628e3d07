package attendance

import "time"

// test hooks

func SetNow(t time.Time) {
	nowFunc = func() time.Time { return t }
}

func ResetNow() {
	nowFunc = time.Now
}
