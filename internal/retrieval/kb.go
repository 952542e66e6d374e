package retrieval

// The static knowledge base: product FAQs, child-tracking FAQs, task
// category definitions, research findings, and methodology notes that
// the retrieval pipeline searches before touching any family data.

type faqEntry struct {
	Question string
	Answer   string
}

var faqs = []faqEntry{
	{
		"How do I add a task to my calendar?",
		"You can add any task to your calendar by clicking the 'Add to Calendar' button on the task card. You can also ask me to add specific tasks or meetings to your calendar by saying 'Add [task name] to my calendar' or 'Schedule the family meeting in my calendar'.",
	},
	{
		"Can I sync with Google Calendar?",
		"Yes! Allie supports integration with Google Calendar, Apple Calendar, and other calendar systems through ICS file downloads. Go to Settings > Calendar to set up your preferred calendar integration.",
	},
	{
		"How does Allie measure workload balance?",
		"Allie uses a comprehensive 80-question initial survey that categorizes tasks across four domains, with a sophisticated weighting system that accounts for time investment, frequency, emotional labor, and mental load.",
	},
	{
		"Why do we track invisible work?",
		"Invisible work like mental load, planning, and emotional labor often goes unrecognized but creates significant stress. Our research shows it's the most imbalanced category in 78% of families.",
	},
	{
		"How long does it take to see results?",
		"Most families report noticeable improvements in balance within 2-4 weeks. Major shifts in satisfaction metrics typically occur around 6-8 weeks of consistent use.",
	},
	{
		"How does Allie support positive parenting?",
		"Allie incorporates scientifically-backed parenting strategies like positive reinforcement, responsibility development, and emotional support. Our approach is based on research showing that a balanced family environment with equitable responsibility sharing creates stronger relationships and better outcomes for children.",
	},
	{
		"How do I add a medical appointment for my child?",
		"You can add a medical appointment by going to the Children Tracking tab, selecting your child, and clicking the '+' button in the Medical Appointments section. You can also ask me to add it for you by saying 'Add a doctor's appointment for [child] on [date]'.",
	},
	{
		"How often should my child have a checkup?",
		"Recommended checkup schedules vary by age. Infants need checkups at 1, 2, 4, 6, 9, and 12 months. Toddlers need them at 15, 18, 24, and 30 months. Preschoolers and older children typically need annual checkups. Dental visits are recommended every 6 months after the first tooth appears.",
	},
	{
		"How do I track my child's growth?",
		"You can record height, weight, shoe size, and clothing size in the Growth & Development section of the Children Tracking tab. It's recommended to measure height and weight quarterly for infants and biannually for older children.",
	},
	{
		"How do I add an emotional check-in for my child?",
		"Go to the Emotional Well-being section of the Children Tracking tab and click the '+' button to record your child's mood and any notes. Regular check-ins help identify patterns and support your child's emotional development.",
	},
	{
		"What homework information should I track?",
		"Track assignment details, due dates, subject, priority level, and completion status in the Homework & Academic section. This helps manage academic responsibilities and identify subjects that may need extra support.",
	},
}

var taskCategories = []struct {
	Name        string
	Keyword     string
	Description string
}{
	{"Visible Household Tasks", "visible household", "Tasks like cleaning, cooking, and home maintenance that are easily observable."},
	{"Invisible Household Tasks", "invisible household", "Tasks like planning, scheduling, and anticipating needs that often go unrecognized."},
	{"Visible Parental Tasks", "visible parental", "Direct childcare activities like driving kids, helping with homework, and attending events."},
	{"Invisible Parental Tasks", "invisible parental", "Emotional labor, monitoring development, and coordinating children's needs."},
}

var researchFindings = []struct {
	Topic   string
	Finding string
}{
	{"Mental Load", "Research shows the 'mental load' of household management falls disproportionately on women in 83% of families."},
	{"Relationship Impact", "Studies indicate that imbalanced household responsibilities increase relationship conflict by 67%."},
	{"Child Development", "Children who witness balanced household responsibilities are 3x more likely to establish equitable relationships as adults."},
	{"Positive Reinforcement", "Studies show that children whose parents use positive reinforcement exhibit better behavior and academic performance."},
	{"Responsibility Development", "Children who regularly participate in household chores demonstrate higher self-esteem, better time management skills, and a greater sense of responsibility."},
}

var methodologyNotes = []struct {
	Name        string
	Keyword     string
	Description string
}{
	{"Task Weighting", "task weighting", "The task weighting system considers time investment, frequency, emotional labor, mental load, and child development impact."},
	{"Improvement Framework", "improvement framework", "A 4-step process: measure current balance, identify high-impact areas, implement targeted tasks, and track progress over time."},
}
