package cmd

import (
	"strings"

	ishell "github.com/abiosoft/ishell"
	"github.com/jghoshh/bienestar/backend/models"
	"github.com/jghoshh/bienestar/backend/wellness"
)

func askInt(c *ishell.Context, prompt string, min, max int) int {
	var n int
	ask(c, prompt, func(v string) (err error) {
		n, err = parseIntRange(v, min, max)
		return err
	})
	return n
}

func askFloat(c *ishell.Context, prompt string, min, max float64) float64 {
	var f float64
	ask(c, prompt, func(v string) (err error) {
		f, err = parseFloatRange(v, min, max)
		return err
	})
	return f
}

func printRecord(c *ishell.Context, r *models.WellnessRecord) {
	c.Printf("%s  water %d  sleep %.1fh  mood %d/5", r.Date, r.WaterGlasses, r.SleepHours, r.Mood)
	if r.Note != "" {
		c.Printf("  %q", r.Note)
	}
	c.Println()
}

func printActivity(c *ishell.Context, a *models.ActivityLog) {
	c.Printf("%s  %-20s %4d min %5d kcal  [%s] (%s)\n", a.Date, a.Name, a.DurationMinutes, a.Calories, a.IconName, a.ID)
}

func printReminder(c *ishell.Context, r models.Reminder) {
	state := "on "
	if !r.Enabled {
		state = "off"
	}
	c.Printf("[%s] %s  %-24s %s", state, r.Time, r.Title, formatDays(r.DaysOfWeek))
	if r.RepeatIntervalHours > 0 {
		c.Printf(", every %dh", r.RepeatIntervalHours)
	}
	c.Printf(" (%s)\n", r.ID)
}

// wellnessCommands are the tracking commands of a signed in user.
func (s *Shell) wellnessCommands() []Command {
	return []Command{
		{Name: "home", Desc: "Show today's overview", Func: s.home},
		{Name: "log", Desc: "Log today's water, sleep and mood", Func: s.logToday},
		{Name: "today", Desc: "Show today's record", Func: s.today},
		{Name: "streak", Desc: "Show your logging streak", Func: s.streak},
		{Name: "statistics", Desc: "Show averages and trends of your last records", Func: s.statistics},
		{Name: "history", Desc: "List records and activities (all, week or month)", Func: s.history},
		{Name: "activities", Desc: "List activities (optionally of one date)", Func: s.activities},
		{Name: "addactivity", Desc: "Log an activity", Func: s.addActivity},
		{Name: "delactivity", Desc: "Delete an activity by id", Func: s.deleteActivity},
		{Name: "reminders", Desc: "List your reminders", Func: s.reminders},
		{Name: "addreminder", Desc: "Create a reminder", Func: s.addReminder},
		{Name: "togglereminder", Desc: "Turn a reminder on or off", Func: s.toggleReminder},
		{Name: "delreminder", Desc: "Delete a reminder by id", Func: s.deleteReminder},
		{Name: "goals", Desc: "Show your goals", Func: s.goals},
		{Name: "setgoals", Desc: "Change your goals", Func: s.setGoals},
		{Name: "medical", Desc: "Show your medical profile", Func: s.medical},
		{Name: "setmedical", Desc: "Edit your medical profile", Func: s.setMedical},
	}
}

func (s *Shell) home(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	home, err := s.client.Home(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	c.Println(home.Greeting + "!")
	if home.Today != nil {
		c.Printf("Water  %s %d/%d\n", bar(float64(home.Today.WaterGlasses)/float64(home.Goals.WaterGoal)), home.Today.WaterGlasses, home.Goals.WaterGoal)
		c.Printf("Sleep  %s %.1f/%.1fh\n", bar(home.Today.SleepHours/home.Goals.SleepGoal), home.Today.SleepHours, home.Goals.SleepGoal)
		c.Printf("Mood   %d/5\n", home.Today.Mood)
	} else {
		c.Println("Nothing logged today yet. Type 'log' to start.")
	}
	c.Printf("Streak %d day(s)\n", home.Streak)
	c.Println("Tip: " + home.Tip)
}

func (s *Shell) logToday(c *ishell.Context) {
	record := models.WellnessRecord{
		WaterGlasses: askInt(c, "Glasses of water: ", 0, 100),
		SleepHours:   askFloat(c, "Hours of sleep: ", 0, 24),
		Mood:         askInt(c, "Mood from 1 to 5: ", 1, 5),
	}
	c.Print("Note (optional): ")
	record.Note = c.ReadLine()

	ctx, cancel := requestContext()
	defer cancel()
	saved, err := s.client.SaveToday(ctx, record)
	if err != nil {
		s.fail(err)
		return
	}
	c.Print("Saved. ")
	printRecord(c, saved)
}

func (s *Shell) today(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	record, err := s.client.Today(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if record == nil {
		c.Println("Nothing logged today yet.")
		return
	}
	printRecord(c, record)
}

func (s *Shell) streak(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	stats, err := s.client.Stats(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	c.Printf("Current streak: %d day(s)\nBest streak:    %d day(s)\n", stats.CurrentStreak, stats.BestStreak)
	if stats.LastLogDate != "" {
		c.Printf("Last log:       %s\n", stats.LastLogDate)
	}
}

func (s *Shell) statistics(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	st, err := s.client.Statistics(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	c.Printf("Records: %d\n", st.TotalRecords)
	c.Printf("Average water %.1f glasses, sleep %.1fh, mood %.1f\n", st.AvgWater, st.AvgSleep, st.AvgMood)
	c.Printf("Today: %d kcal burned over %d min (goal %d kcal)\n", st.TotalCaloriesToday, st.TotalMinutesToday, st.Goals.DailyCaloriesGoal)
	if len(st.WaterTrend) > 0 {
		c.Println("Water:")
		for _, p := range st.WaterTrend {
			c.Printf("  %s %s\n", p.Label, bar(p.Value))
		}
	}
	var week strings.Builder
	for _, d := range st.LastSevenDays {
		mark := "-"
		if d.Active {
			mark = "*"
		}
		week.WriteString(d.Label + mark + " ")
	}
	c.Printf("Active days: %d/%d  %s\n", st.ActiveDays, st.Goals.WeeklyWorkoutDaysGoal, strings.TrimSpace(week.String()))
}

func (s *Shell) history(c *ishell.Context) {
	filter := string(wellness.FilterAll)
	if len(c.Args) > 0 {
		filter = c.Args[0]
	}
	ctx, cancel := requestContext()
	defer cancel()
	items, err := s.client.History(ctx, filter)
	if err != nil {
		s.fail(err)
		return
	}
	if len(items) == 0 {
		c.Println("No history yet.")
		return
	}
	for _, item := range items {
		switch item.Kind {
		case wellness.ItemRecord:
			printRecord(c, item.Record)
		case wellness.ItemActivity:
			printActivity(c, item.Activity)
		}
	}
}

func (s *Shell) activities(c *ishell.Context) {
	var date string
	if len(c.Args) > 0 {
		date = c.Args[0]
	}
	ctx, cancel := requestContext()
	defer cancel()
	list, err := s.client.Activities(ctx, date)
	if err != nil {
		s.fail(err)
		return
	}
	if len(list) == 0 {
		c.Println("No activities found.")
		return
	}
	for i := range list {
		printActivity(c, &list[i])
	}
}

func (s *Shell) addActivity(c *ishell.Context) {
	activity := models.ActivityLog{
		Name: ask(c, "Activity: ", checkName),
	}
	activity.DurationMinutes = askInt(c, "Minutes: ", 0, 24*60)
	activity.Calories = askInt(c, "Calories: ", 0, 100000)
	c.Print("Date (YYYY-MM-DD, empty for today): ")
	activity.Date = strings.TrimSpace(c.ReadLine())
	c.Print("Icon (optional): ")
	activity.IconName = strings.TrimSpace(c.ReadLine())

	ctx, cancel := requestContext()
	defer cancel()
	saved, err := s.client.AddActivity(ctx, activity)
	if err != nil {
		s.fail(err)
		return
	}
	c.Print("Saved. ")
	printActivity(c, saved)
}

// idArg reads the id from the arguments or asks for it.
func idArg(c *ishell.Context, what string) string {
	if len(c.Args) > 0 {
		return c.Args[0]
	}
	return ask(c, "Enter "+what+" id: ", nil)
}

func (s *Shell) deleteActivity(c *ishell.Context) {
	id := idArg(c, "activity")
	ctx, cancel := requestContext()
	defer cancel()
	if err := s.client.DeleteActivity(ctx, id); err != nil {
		s.fail(err)
		return
	}
	c.Println("Activity deleted.")
}

func (s *Shell) reminders(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	list, err := s.client.Reminders(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if len(list) == 0 {
		c.Println("No reminders yet.")
		return
	}
	for _, r := range list {
		printReminder(c, r)
	}
}

func (s *Shell) addReminder(c *ishell.Context) {
	reminder := models.Reminder{
		Title:   ask(c, "Title: ", checkName),
		Time:    ask(c, "Time (e.g. 08:30 AM or 20:30): ", nil),
		Enabled: true,
	}
	ask(c, "Days (e.g. mon,wed,fri or 2,4,6; empty for every day): ", func(v string) (err error) {
		reminder.DaysOfWeek, err = parseDays(v)
		return err
	})
	reminder.RepeatIntervalHours = askInt(c, "Repeat every N hours (0 for once a day): ", 0, 24)

	ctx, cancel := requestContext()
	defer cancel()
	saved, err := s.client.AddReminder(ctx, reminder)
	if err != nil {
		s.fail(err)
		return
	}
	c.Print("Saved. ")
	printReminder(c, *saved)
}

func (s *Shell) toggleReminder(c *ishell.Context) {
	id := idArg(c, "reminder")
	ctx, cancel := requestContext()
	defer cancel()
	r, err := s.client.ToggleReminder(ctx, id)
	if err != nil {
		s.fail(err)
		return
	}
	printReminder(c, *r)
}

func (s *Shell) deleteReminder(c *ishell.Context) {
	id := idArg(c, "reminder")
	ctx, cancel := requestContext()
	defer cancel()
	if err := s.client.DeleteReminder(ctx, id); err != nil {
		s.fail(err)
		return
	}
	c.Println("Reminder deleted.")
}

func printGoals(c *ishell.Context, g *models.UserGoals) {
	c.Printf("Water:    %d glasses\nSleep:    %.1f hours\nCalories: %d kcal\nWorkouts: %d days a week\n",
		g.WaterGoal, g.SleepGoal, g.DailyCaloriesGoal, g.WeeklyWorkoutDaysGoal)
}

func (s *Shell) goals(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	g, err := s.client.Goals(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	printGoals(c, g)
}

func (s *Shell) setGoals(c *ishell.Context) {
	goals := models.UserGoals{
		WaterGoal:             askInt(c, "Daily glasses of water: ", 1, 100),
		SleepGoal:             askFloat(c, "Hours of sleep: ", 0.5, 24),
		DailyCaloriesGoal:     askInt(c, "Daily calories to burn: ", 1, 100000),
		WeeklyWorkoutDaysGoal: askInt(c, "Workout days a week: ", 1, 7),
	}
	ctx, cancel := requestContext()
	defer cancel()
	if err := s.client.SaveGoals(ctx, goals); err != nil {
		s.fail(err)
		return
	}
	c.Println("Goals updated.")
}

func (s *Shell) medical(c *ishell.Context) {
	ctx, cancel := requestContext()
	defer cancel()
	p, err := s.client.Medical(ctx)
	if err != nil {
		s.fail(err)
		return
	}
	if p == nil {
		c.Println("No medical profile yet. Type 'setmedical' to create one.")
		return
	}
	c.Printf("Name:       %s\nBlood type: %s\nHeight:     %s\nWeight:     %s\n", p.FullName, p.BloodType, p.Height, p.Weight)
	c.Printf("Allergies:  %s\nConditions: %s\n", strings.Join(p.Allergies, ", "), strings.Join(p.Conditions, ", "))
}

func (s *Shell) setMedical(c *ishell.Context) {
	profile := models.MedicalProfile{
		FullName:  ask(c, "Full name: ", nil),
		BloodType: ask(c, "Blood type: ", nil),
		Height:    ask(c, "Height: ", nil),
		Weight:    ask(c, "Weight: ", nil),
	}
	profile.Allergies = splitList(ask(c, "Allergies (comma separated): ", nil))
	profile.Conditions = splitList(ask(c, "Conditions (comma separated): ", nil))

	ctx, cancel := requestContext()
	defer cancel()
	if err := s.client.SaveMedical(ctx, profile); err != nil {
		s.fail(err)
		return
	}
	c.Println("Medical profile saved.")
}
