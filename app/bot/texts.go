package bot

// User-facing copy. The audience is Ukrainian-speaking, so it stays in
// Ukrainian; everything operational (logs, metrics, errors) is English.
const (
	textGreeting = "Вітаю! Я бот-помічниця Оля!👩🏻‍💻\n" +
		"Я буду скидати вам новини та важливу інформацію⚡️"

	textMainMenu = "Зараз ви можете пройти невеличке опитування чи одразу " +
		"звʼязатись з менеджером, який вас введе в курс справи🙌"

	textManagerContact = "Надаю вам контакт менеджера Володимира - @hr_volodymyr🧑🏻‍💻 " +
		"Відправ йому «+» і він розповість вам про роботу, та буде допомагати " +
		"в подальшому!🚀"

	textAgePrompt    = "Скільки вам років?"
	textAgeAck       = "Дякую! Рухаємось далі💪"
	textIncomePrompt = "Який ваш щомісячний дохід?"
	textIncomeAck    = "Чудово, майже все!⚡️"
	textDevicePrompt = "Чи є у вас ноутбук або компʼютер?"

	textDeviceYes = "Супер! З технікою ви зможете стартувати одразу і " +
		"вийти на хороший темп вже в перший тиждень🚀"
	textDeviceNo = "Нічого страшного! Ви можете почати із запрошення друзів " +
		"за своїм реферальним посиланням і отримувати бонуси вже зараз🤝"
	textTalkToManager = "Залишилось тільки звʼязатись з менеджером, він " +
		"відповість на всі питання та допоможе зі стартом🙌"

	textDashboard = "Панель керування. Оберіть дію:"

	textAskNoteTitle = "Введіть назву нової примітки (або /cancel для виходу):"
	textAskNoteURL   = "Тепер надішліть посилання для примітки, або «-», " +
		"якщо посилання не потрібне:"
	textNoteTitleInvalid = "Назва не може бути порожньою. Спробуйте ще раз:"
	textNoteURLInvalid   = "Це не схоже на посилання. Надішліть коректний " +
		"URL або «-»:"
	textAskReminderText     = "Надішліть новий текст нагадування (або /cancel):"
	textReminderTextInvalid = "Текст не може бути порожнім. Спробуйте ще раз:"
	textReminderUpdated     = "Текст нагадування оновлено✅"
	textCaptureCancelled    = "Дію скасовано."
	textNothingToCancel     = "Нема активної дії для скасування."

	textNoteDeleted   = "Примітку видалено."
	textNoteNotFound  = "Примітку не знайдено."
	textGroupChosen   = "Групу для сповіщень збережено✅"
	textGroupNotFound = "Цю групу бот ще не бачив. Додайте бота в групу і " +
		"спробуйте ще раз."
	textNoGroups = "Бот ще не бачив жодної групи. Додайте бота в групу, " +
		"щоб обрати її тут."
	textNoNotes = "У вас ще немає приміток."

	textSomethingWrong = "Щось пішло не так. Спробуйте ще раз пізніше."
	textUnknownOption  = "Ця кнопка вже не актуальна."
)

// Inline button captions
const (
	btnContactManager = "Написати менеджеру👨🏻‍💻"
	btnStartPoll      = "Пройти опитування⚡️"
	btnManagerLink    = "Написати Менеджеру👨🏻‍💻"

	btnDashLink     = "🔗 Моє реферальне посилання"
	btnDashNotes    = "📝 Мої примітки"
	btnDashGroups   = "📣 Група для сповіщень"
	btnDashExport   = "📊 Експорт статистики"
	btnDashReminder = "⏰ Текст нагадування"
	btnBack         = "⬅️ Назад"
	btnCreateNote   = "➕ Створити примітку"
)
