package services

// Тексты сообщений бота. Набор фиксированный, плейсхолдер {username}
// подставляется через strings.ReplaceAll.
const (
	msgWelcome = `🌙 Добро пожаловать в бота с подкастами для сна малышей!

Здесь вы найдете успокаивающие подкасты, которые помогут вашему ребенку крепко спать.

🎁 У вас есть доступ к одному бесплатному подкасту!
✨ Заплатите один раз 599 ⭐ - получите доступ ко ВСЕМ подкастам навсегда!`

	msgFreePodcastCaption = `🎁 Бесплатный подкаст для вас!

Вы можете приобрести полный набор подкастов для сна малышей или подарить их своему другу по цене чашки кофе ☕

✨ Заплатите один раз - получите доступ ко ВСЕМ подкастам навсегда!
💫 Полная коллекция: 599 ⭐`

	msgOfferCollection = `💫 Хотите получить доступ ко всей коллекции?`

	msgPremiumRequired = `🔒 Этот подкаст доступен только с премиум доступом

✨ Заплатите один раз 599 ⭐ - получите доступ ко ВСЕМ подкастам навсегда!
💫 Новые подкасты также будут доступны автоматически!`

	msgPaymentSuccess = `✅ Спасибо за покупку!

🎉 Теперь у вас есть доступ ко ВСЕЙ коллекции подкастов навсегда!
💫 Все новые подкасты также будут доступны автоматически!
🌙 Наслаждайтесь!`

	msgGiftReceived = `🎁 Поздравляем с рождением ребенка! Вам подарили доступ к подкастам на тему детского сна!

🎉 Теперь у вас есть доступ ко ВСЕЙ коллекции навсегда!
💫 Все новые подкасты также будут доступны автоматически!
🌙 Приятных снов!`

	msgAskGiftUsername = `🎁 Подарить премиум доступ

Введите username получателя (например: @username или username):

💡 После ввода username мы отправим вам счет на 599 ⭐
✅ После оплаты получатель автоматически получит доступ`

	msgGiftInvoiceSent = `🎁 Подарок для @{username}

💰 Оплатите счет ниже, чтобы подарить премиум доступ
✨ После оплаты @{username} автоматически получит доступ ко всем подкастам`

	msgGiftSuccessSender = `✅ Подарок успешно отправлен!

🎁 Пользователь @{username} получил премиум доступ
💌 Мы отправили ему поздравительное сообщение
🌙 Спасибо за ваш подарок!`

	msgGiftUsernameNotFound = `❌ Пользователь не найден

Пожалуйста, убедитесь что:
• Username введен правильно
• Пользователь хотя бы раз запускал бота (/start)

Попробуйте еще раз или попросите получателя сначала запустить бота.`

	msgGiftUsernameEmpty = `Пожалуйста, введите корректный username.`

	msgPodcastNotFound = `Подкаст не найден.`

	msgNoFreePodcasts = `😔 К сожалению, бесплатные подкасты временно недоступны.

Но вы можете получить полный доступ ко всей коллекции!`

	msgUnknownCommand = `Извините, я не понимаю эту команду. Используйте /help для получения справки.`

	msgPaymentUnmatched = `⚠️ Платёж получен, но счёт устарел или не найден.

Пожалуйста, обратитесь в поддержку — мы всё исправим.`

	msgHelp = `🌙 Помощь по боту

Команды:
/start - Начать работу с ботом
/podcasts - Показать все подкасты
/help - Эта справка

✨ Премиум доступ - заплатите один раз, получите навсегда:
• Доступ ко ВСЕМ подкастам без ограничений
• Все новые подкасты автоматически
• Защищенный контент от копирования
• Пожизненный доступ

💰 Стоимость: 599 Telegram Stars (≈ цена чашки кофе)
🎯 Один платеж = доступ навсегда!`

	msgUpsell = `✨ Заплатите один раз 599 ⭐ - получите доступ ко ВСЕМ подкастам навсегда!`

	invoiceTitleSelf       = `Доступ ко ВСЕМ подкастам навсегда`
	invoiceDescriptionSelf = `Заплатите один раз - получите доступ ко всей коллекции подкастов для сна навсегда! Новые подкасты также будут доступны автоматически.`
)
