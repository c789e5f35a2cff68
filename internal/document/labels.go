package document

type labels struct {
	currency   string
	dateLayout string

	orderTitle   string
	receiptTitle string
	orderNumber  string
	receiptNo    string
	date         string
	status       string
	deadline     string

	clientSection string
	name          string
	email         string
	phone         string
	taxID         string
	address       string

	deviceSection string
	service       string
	deviceType    string
	brandModel    string
	serial        string
	defects       string
	diagnosis     string

	costSection   string
	item          string
	amount        string
	partsSubtotal string
	labor         string
	subtotal      string
	discount      string
	total         string

	paymentSection string
	orderTotal     string
	amountPaid     string
	method         string
	installments   string
	perInstallment string

	termsSection string
	terms        []string

	signatures      string
	clientSignature string
	techSignature   string
	pickupDate      string
	paidConfirm     string

	statuses map[string]string
	methods  map[string]string
}

var ptBR = labels{
	currency:   "R$",
	dateLayout: "02/01/2006",

	orderTitle:   "ORDEM DE SERVIÇO",
	receiptTitle: "COMPROVANTE DE PAGAMENTO",
	orderNumber:  "OS Nº",
	receiptNo:    "Comprovante Nº",
	date:         "Data",
	status:       "Status",
	deadline:     "Prazo estimado",

	clientSection: "DADOS DO CLIENTE",
	name:          "Nome",
	email:         "E-mail",
	phone:         "Telefone",
	taxID:         "CPF",
	address:       "Endereço",

	deviceSection: "DADOS DO APARELHO",
	service:       "Serviço",
	deviceType:    "Tipo",
	brandModel:    "Marca/Modelo",
	serial:        "Nº de série",
	defects:       "Defeitos relatados",
	diagnosis:     "Diagnóstico técnico",

	costSection:   "CUSTOS",
	item:          "Descrição",
	amount:        "Valor",
	partsSubtotal: "Subtotal Peças",
	labor:         "Mão de Obra",
	subtotal:      "Subtotal",
	discount:      "Desconto",
	total:         "TOTAL",

	paymentSection: "DADOS DO PAGAMENTO",
	orderTotal:     "Valor da OS",
	amountPaid:     "Valor pago",
	method:         "Forma de pagamento",
	installments:   "Parcelas",
	perInstallment: "Valor por parcela",

	termsSection: "CONDIÇÕES GERAIS DE SERVIÇO",
	terms: []string{
		"O prazo de execução é informado na avaliação do aparelho.",
		"O cliente é avisado assim que o serviço for concluído.",
		"Peças e mão de obra têm garantia de 30 dias.",
		"Aparelhos não retirados em até 30 dias após a conclusão estão sujeitos a taxa de armazenamento.",
		"Peças substituídas ficam com a oficina, salvo pedido do cliente no orçamento.",
		"A retirada é feita pelo cliente ou por pessoa autorizada por escrito.",
		"A oficina não responde por dados perdidos durante o reparo.",
		"Reparos não autorizados são cobrados apenas pela avaliação.",
	},

	signatures:      "ASSINATURAS",
	clientSignature: "Assinatura do cliente",
	techSignature:   "Assinatura do técnico",
	pickupDate:      "Data da retirada:  ___ / ___ / ______",
	paidConfirm:     "Declaro ter recebido o valor acima.",

	statuses: map[string]string{
		"pending":        "PENDENTE",
		"in_progress":    "EM ANDAMENTO",
		"awaiting_parts": "AGUARDANDO PEÇAS",
		"ready":          "PRONTO",
		"paid":           "PAGO",
		"completed":      "CONCLUÍDO",
		"delivered":      "ENTREGUE",
		"cancelled":      "CANCELADO",
	},
	methods: map[string]string{
		"cash":        "Dinheiro",
		"debit_card":  "Cartão de débito",
		"credit_card": "Cartão de crédito",
		"pix":         "PIX",
	},
}

var en = labels{
	currency:   "R$",
	dateLayout: "Jan 2, 2006",

	orderTitle:   "SERVICE ORDER",
	receiptTitle: "PAYMENT RECEIPT",
	orderNumber:  "Order #",
	receiptNo:    "Receipt #",
	date:         "Date",
	status:       "Status",
	deadline:     "Estimated deadline",

	clientSection: "CUSTOMER",
	name:          "Name",
	email:         "Email",
	phone:         "Phone",
	taxID:         "Tax ID",
	address:       "Address",

	deviceSection: "DEVICE",
	service:       "Service",
	deviceType:    "Type",
	brandModel:    "Brand/Model",
	serial:        "Serial number",
	defects:       "Reported defects",
	diagnosis:     "Diagnosis",

	costSection:   "COSTS",
	item:          "Description",
	amount:        "Amount",
	partsSubtotal: "Parts subtotal",
	labor:         "Labor",
	subtotal:      "Subtotal",
	discount:      "Discount",
	total:         "TOTAL",

	paymentSection: "PAYMENT",
	orderTotal:     "Order total",
	amountPaid:     "Amount paid",
	method:         "Payment method",
	installments:   "Installments",
	perInstallment: "Per installment",

	termsSection: "TERMS OF SERVICE",
	terms: []string{
		"The repair deadline is given when the device is assessed.",
		"The customer is notified when the service is complete.",
		"Parts and labor carry a 30 day warranty.",
		"Devices not collected within 30 days of completion incur a storage fee.",
		"Replaced parts stay with the shop unless requested at quote time.",
		"Pickup is by the customer or a person authorized in writing.",
		"The shop is not liable for data lost during repair.",
		"Declined repairs are charged for the assessment only.",
	},

	signatures:      "SIGNATURES",
	clientSignature: "Customer signature",
	techSignature:   "Technician signature",
	pickupDate:      "Pickup date:  ___ / ___ / ______",
	paidConfirm:     "I confirm receipt of the amount above.",

	statuses: map[string]string{},
	methods: map[string]string{
		"cash":        "Cash",
		"debit_card":  "Debit card",
		"credit_card": "Credit card",
		"pix":         "PIX",
	},
}
