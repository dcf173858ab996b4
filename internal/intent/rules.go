package intent

// DefaultRules returns the built-in keyword rules.
func DefaultRules() []Rule {
	return []Rule{
		{
			Label: LabelTime,
			Keywords: []Keyword{
				{Word: "time", Weight: 1.0, Exact: true}, kw("what time", 1.2), kw("clock", 0.8), kw("date", 0.9),
				kw("what day", 1.0), kw("today", 0.4), kw("hour", 0.5),
				kw("what is the date", 1.0), kw("day of the week", 1.0),
			},
		},
		{
			Label: LabelCalculation,
			Keywords: []Keyword{
				kw("calculate", 1.2), kw("plus", 1.0), kw("minus", 1.0), kw("times", 0.6),
				kw("multiplied by", 1.2), kw("divided by", 1.2), kw("percent", 0.8),
				kw("square root", 1.0), kw("math", 0.8), kw("+", 1.0), kw("*", 1.0),
				kw("/", 0.8), kw("-", 0.6), kw("×", 1.0), kw("÷", 1.0), kw("%", 0.8), kw("what is", 0.2),
			},
			Expansions: []string{"calculate", "calculator", "multiply", "percentage"},
		},
		{
			Label: LabelDeviceStatus,
			Keywords: []Keyword{
				kw("battery", 1.2), kw("charging", 0.9), kw("charge", 0.7), kw("wifi", 0.9),
				kw("bluetooth", 0.9), kw("storage", 0.9), kw("memory", 0.8), kw("low power", 1.0),
				kw("signal", 0.7), kw("connected", 0.6), kw("internet", 0.6), kw("status", 0.5),
			},
			Expansions: []string{"battery", "bluetooth", "storage", "connection"},
		},
		{
			Label: LabelGeneralInfo,
			Keywords: []Keyword{
				kw("who are you", 1.2), kw("your name", 1.2), kw("what can you do", 1.3),
				kw("help", 0.7), kw("privacy", 1.0), kw("what are you", 1.0), kw("how do you work", 1.0),
			},
		},
		{
			Label: LabelCalendar,
			Keywords: []Keyword{
				kw("calendar", 1.2), kw("meeting", 1.0), kw("appointment", 1.0), kw("schedule", 0.9),
				kw("event", 0.8), kw("agenda", 1.0), kw("busy", 0.6),
			},
			Expansions: []string{"calendar", "appointment", "schedule"},
		},
		{
			Label: LabelReminder,
			Keywords: []Keyword{
				kw("remind", 1.2), kw("reminder", 1.2), kw("alarm", 1.0), kw("timer", 1.0),
				kw("wake me", 1.0), kw("do not forget", 0.8),
			},
			Expansions: []string{"reminder"},
		},
		{
			Label: LabelMessaging,
			Keywords: []Keyword{
				kw("text", 0.9), kw("message", 1.0), kw("call", 0.9), kw("send", 0.6),
				kw("tell", 0.4), kw("reply", 0.8),
			},
			Expansions: []string{"message"},
		},
		{
			Label: LabelMusic,
			Keywords: []Keyword{
				kw("play", 0.9), kw("music", 1.2), kw("song", 1.0), kw("playlist", 1.0),
				kw("pause", 0.8), kw("skip", 0.7), kw("album", 0.8), kw("volume", 0.5),
			},
			Expansions: []string{"playlist"},
		},
		{
			Label: LabelSmalltalk,
			Keywords: []Keyword{
				kw("hello", 1.0), kw("hi", 0.8), kw("thanks", 1.0), kw("thank you", 1.0),
				kw("how are you", 1.2), kw("good morning", 0.9), kw("good night", 0.9), kw("joke", 1.0),
			},
		},
		{
			Label: LabelEmail,
			Keywords: []Keyword{
				kw("email", 1.2), kw("e-mail", 1.2), kw("inbox", 1.0), kw("mail", 0.8),
			},
		},
		{
			Label: LabelWeather,
			Keywords: []Keyword{
				kw("weather", 1.2), kw("rain", 0.9), kw("forecast", 1.0), kw("temperature", 1.0),
				kw("sunny", 0.8), kw("snow", 0.8), kw("umbrella", 0.8), kw("hot", 0.4), kw("cold", 0.4),
			},
			Expansions: []string{"temperature", "forecast"},
		},
		{
			Label: LabelWebSearch,
			Keywords: []Keyword{
				kw("search", 1.0), kw("look up", 1.0), kw("google", 1.0), kw("who is", 0.6),
				kw("who was", 0.6), kw("news", 0.8),
			},
		},
		{
			Label: LabelNavigation,
			Keywords: []Keyword{
				kw("directions", 1.2), kw("navigate", 1.2), kw("route", 0.8), kw("traffic", 0.9),
				kw("how far", 0.9), kw("take me to", 1.0),
			},
			Expansions: []string{"navigate", "navigation", "directions"},
		},
	}
}

func kw(word string, weight float64) Keyword {
	return Keyword{Word: word, Weight: weight}
}
